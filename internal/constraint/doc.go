// Package constraint compiles Optimality Theory constraints into
// violation-marking recipes.
//
// Every constraint is either a Single constraint, which marks each match of
// a violation pattern (optionally inside a left/right context) with a
// violation mark, or a Bundle, which composes the recipes of its children and
// is penalized as one unit. The linguistic families (markedness,
// faithfulness, maximality, dependency, gradient, assimilation) are recipe
// builders on a Builder that reduce to these two shapes.
//
// # Usage
//
//	b := constraint.NewBuilder(symbols.Default())
//	maxIO, err := b.Maximality(constraint.Pattern{}, constraint.WithName("Max(IO)"))
//	noCoda, err := b.ComplexCoda(constraint.Phonemes(consonants...), constraint.WithName("NoCoda"))
//
// Constraints are immutable once built and may be shared between tableaux.
package constraint
