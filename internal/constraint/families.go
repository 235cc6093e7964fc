package constraint

import (
	"fmt"

	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/scope"
)

// Markedness marks output material matching violation.
//
// Unless SingleSymbol is given, ignorable material (input segments, deletion
// markers, violation marks and the scope's transparent boundaries) may occur
// inside the violation. The violation must directly follow an output-tape
// prefix unless WithPrefix says otherwise.
func (b *Builder) Markedness(violation Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	return b.finish(KindSingle, b.markedness(violation, o), nil, o)
}

func (b *Builder) markedness(violation Pattern, o options) regex.Node {
	ign := b.ignores(o)
	v := violation.violation()
	if !o.singleSymbol {
		v = regex.IgnoreIn(v, ign...)
	}
	prefix := b.sym.OutPrefix()
	if o.prefixSet {
		prefix = o.prefix
	}
	if prefix != nil {
		v = regex.Seq(prefix, v)
	}
	left, right := b.contexts(o, ign)
	return b.single(v, left, right)
}

// MarkednessBundle builds one Markedness constraint per violation and
// bundles them. Violation marks are transparent inside each member.
func (b *Builder) MarkednessBundle(violations []Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultBundlePrecision, nil, opts)
	children := make([]*Constraint, 0, len(violations))
	for i, v := range violations {
		c, err := b.Markedness(v, o.inherit(WithIgnore(b.sym.Mark()), b.childName(o, i))...)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return b.Bundle(children, WithName(o.name), WithPrecision(o.n))
}

// Faithfulness marks input segments from mustKeep that surface as anything
// other than themselves.
func (b *Builder) Faithfulness(mustKeep Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	return b.finish(KindSingle, b.faithfulness(mustKeep, o), nil, o)
}

func (b *Builder) faithfulness(mustKeep Pattern, o options) regex.Node {
	ign := b.ignores(o)
	left, right := b.contexts(o, ign)
	mk := mustKeep.violation()
	v := regex.Seq(b.sym.In(), mk, b.sym.Out(), regex.Other(mk))
	return b.single(v, left, right)
}

// FaithfulnessBundle builds one Faithfulness constraint per phoneme set and
// bundles them.
func (b *Builder) FaithfulnessBundle(mustKeeps []Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultBundlePrecision, nil, opts)
	children := make([]*Constraint, 0, len(mustKeeps))
	for i, mk := range mustKeeps {
		c, err := b.Faithfulness(mk, o.inherit(WithIgnore(b.sym.Mark()), b.childName(o, i))...)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return b.Bundle(children, WithName(o.name), WithPrecision(o.n))
}

// Maximality marks deleted input segments matching target, any segment when
// target is empty.
func (b *Builder) Maximality(target Pattern, opts ...Option) (*Constraint, error) {
	t := target.violation()
	if t == nil {
		t = b.sym.AnyIn()
	}
	v := regex.Seq(b.sym.In(), t, b.sym.Out(), b.sym.No())
	return b.Markedness(Expr(v), append([]Option{SingleSymbol(), WithPrefix(nil)}, opts...)...)
}

// Dependency marks inserted output segments matching target, any segment
// when target is empty.
func (b *Builder) Dependency(target Pattern, opts ...Option) (*Constraint, error) {
	t := target.violation()
	if t == nil {
		t = b.sym.AnyOut()
	}
	v := regex.Seq(b.sym.In(), b.sym.No(), b.sym.Out(), t)
	return b.Markedness(Expr(v), append([]Option{SingleSymbol(), WithPrefix(nil)}, opts...)...)
}

// Gradient marks output segments matching violation that sit in a run
// anchored at the scope border, once the run is longer than the maximum
// size. The left border is used unless RightOriented is given.
func (b *Builder) Gradient(violation Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	return b.finish(KindSingle, b.gradient(violation, o), nil, o)
}

func (b *Builder) gradient(violation Pattern, o options) regex.Node {
	v := regex.Seq(b.sym.OutPrefix(), violation.violation())
	left := o.left.context(b.sym)
	right := o.right.context(b.sym)
	var run regex.Node
	if o.maxSize > 0 {
		run = regex.Power(v, o.maxSize)
	}
	if o.rightward {
		border := o.border
		if border == nil {
			border = o.scope.Right(b.sym)
		}
		right = regex.Seq(regex.Star(v), run, right, border)
	} else {
		border := o.border
		if border == nil {
			border = o.scope.Left(b.sym)
		}
		left = regex.Seq(border, left, run, regex.Star(v))
	}
	mo := o
	mo.singleSymbol = true
	mo.prefix, mo.prefixSet = nil, true
	mo.left, mo.right = exprOrZero(left), exprOrZero(right)
	return b.markedness(Expr(v), mo)
}

// HorizontalGradient bundles Gradient constraints at increasing maximum
// sizes, one per depth level, so that violations further from the border
// collect more marks.
func (b *Builder) HorizontalGradient(violation Pattern, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	children := make([]*Constraint, 0, o.depth)
	for i := 0; i < o.depth; i++ {
		c, err := b.Gradient(violation, o.inherit(WithMaxSize(o.maxSize+i), b.childName(o, i))...)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return b.Bundle(children, WithName(o.name), WithPrecision(o.n))
}

// ComplexOnset marks onsets holding more than the maximum size (default 1)
// segments from onset.
func (b *Builder) ComplexOnset(onset Pattern, opts ...Option) (*Constraint, error) {
	defaults := []Option{WithScope(scope.Onset), WithMaxSize(1)}
	o := newOptions(DefaultStructurePrecision, defaults, opts)
	return b.finish(KindSingle, b.gradient(onset, o), nil, o)
}

// ComplexCoda marks codas holding more than the maximum size (default 0)
// segments from coda.
func (b *Builder) ComplexCoda(coda Pattern, opts ...Option) (*Constraint, error) {
	defaults := []Option{WithScope(scope.Coda), RightOriented()}
	o := newOptions(DefaultStructurePrecision, defaults, opts)
	return b.finish(KindSingle, b.gradient(coda, o), nil, o)
}

// Assimilation bundles, for every phoneme set in features, a Markedness
// constraint marking a cluster consonant outside the set that follows one
// inside it.
func (b *Builder) Assimilation(features [][]string, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultStructurePrecision, nil, opts)
	children := make([]*Constraint, 0, len(features))
	for i, f := range features {
		v := regex.Other(regex.Syms(f...))
		c, err := b.Markedness(Expr(v), WithScope(scope.ConsCluster), WithLeft(Phonemes(f...)), b.childName(o, i))
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return b.Bundle(children, WithName(o.name), WithPrecision(o.n))
}

// ignores lists the material transparent inside a violation and its
// contexts.
func (b *Builder) ignores(o options) []regex.Node {
	out := append([]regex.Node(nil), o.ignore...)
	out = append(out, b.sym.IgnoreMarkInput())
	if ign := o.scope.Ignore(b.sym); ign != nil {
		out = append(out, ign)
	}
	return out
}

func (b *Builder) contexts(o options, ign []regex.Node) (left, right regex.Node) {
	if l := o.left.context(b.sym); l != nil {
		left = regex.IgnoreIn(l, ign...)
	}
	if r := o.right.context(b.sym); r != nil {
		right = regex.IgnoreIn(r, ign...)
	}
	return left, right
}

// childName names bundle members after their bundle.
func (b *Builder) childName(o options, i int) Option {
	if o.name == "" {
		return func(*options) {}
	}
	return WithName(fmt.Sprintf("%s[%d]", o.name, i))
}

func exprOrZero(n regex.Node) Pattern {
	if n == nil {
		return Pattern{}
	}
	return Expr(n)
}
