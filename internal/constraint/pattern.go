package constraint

import (
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// Pattern describes a violation or a context: a phoneme set, a sequence of
// phoneme sets, or a ready-made expression. The zero Pattern is empty.
type Pattern struct {
	sets [][]string
	expr regex.Node
}

// Phonemes matches any one of the given phonemes. An empty set matches
// nothing.
func Phonemes(ps ...string) Pattern {
	return Pattern{sets: [][]string{append([]string{}, ps...)}}
}

// Sequence matches one phoneme from each set, in order.
func Sequence(sets ...[]string) Pattern {
	cp := make([][]string, len(sets))
	for i, s := range sets {
		cp[i] = append([]string{}, s...)
	}
	return Pattern{sets: cp}
}

// Regex is a pattern given as regex text, used verbatim.
func Regex(text string) Pattern {
	if text == "" {
		return Pattern{}
	}
	return Pattern{expr: regex.Text(text)}
}

// Expr is a pattern given as a recipe tree.
func Expr(n regex.Node) Pattern { return Pattern{expr: n} }

// IsZero reports whether p is empty.
func (p Pattern) IsZero() bool { return p.expr == nil && len(p.sets) == 0 }

// violation renders p as the thing to be marked.
func (p Pattern) violation() regex.Node {
	if p.expr != nil {
		return p.expr
	}
	switch len(p.sets) {
	case 0:
		return nil
	case 1:
		return regex.Syms(p.sets[0]...)
	}
	items := make([]regex.Node, len(p.sets))
	for i, s := range p.sets {
		items[i] = regex.Syms(s...)
	}
	return regex.Seq(items...)
}

// context renders p as a rule context. Phoneme sets are read off the output
// tape, except that a set holding a single marker stays a bare marker.
func (p Pattern) context(sym *symbols.Set) regex.Node {
	if p.expr != nil {
		return p.expr
	}
	if len(p.sets) == 0 {
		return nil
	}
	items := make([]regex.Node, len(p.sets))
	for i, s := range p.sets {
		if len(s) == 1 && sym.IsMarker(s[0]) {
			items[i] = regex.Sym(s[0])
			continue
		}
		items[i] = regex.Seq(sym.OutPrefix(), regex.Syms(s...))
	}
	return regex.Seq(items...)
}
