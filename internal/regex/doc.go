// Package regex provides a small typed syntax for finite-state recipes.
//
// Recipes are assembled from nodes (symbols, sequences, disjunctions, cross
// products, repetition, complements, ignore, rewrite rules and composition)
// and rendered to HFST regular expression text only when handed to an
// engine. Keeping the tree around until then makes recipes inspectable and
// testable without compiling anything.
//
// # Usage
//
//	v := regex.Seq(regex.Sym(">"), regex.Any())
//	rule := regex.Markup(v, regex.Shortest, nil, regex.Sym("*"))
//	fmt.Println(regex.Render(rule))
//
// Phoneme literals are always escaped character by character, so markers and
// operators can never collide with segment symbols.
package regex
