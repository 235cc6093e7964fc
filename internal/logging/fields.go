package logging

import "go.uber.org/zap"

// Automaton logs the size of an automaton as one nested field.
func Automaton(states, arcs int) zap.Field {
	return zap.Dict("automaton", zap.Int("states", states), zap.Int("arcs", arcs))
}

// Lookup logs a lookup request: the input and the bound on results.
func Lookup(input string, max int) zap.Field {
	return zap.Dict("lookup", zap.String("input", input), zap.Int("max", max))
}
