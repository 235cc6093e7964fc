package constraint

import (
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/scope"
)

type options struct {
	name         string
	n            int
	scope        scope.Scope
	left, right  Pattern
	ignore       []regex.Node
	singleSymbol bool
	prefix       regex.Node
	prefixSet    bool
	rightward    bool
	border       regex.Node
	maxSize      int
	depth        int
}

// Option configures a constraint.
type Option func(*options)

func newOptions(n int, defaults []Option, opts []Option) options {
	o := options{n: n, scope: scope.Word, depth: 10}
	for _, opt := range defaults {
		opt(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName sets the display name. Unnamed constraints get a generated one.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithPrecision sets the penalization precision used by the counting method.
func WithPrecision(n int) Option { return func(o *options) { o.n = n } }

// WithScope restricts matching to a prosodic domain. The default is
// scope.Word.
func WithScope(s scope.Scope) Option { return func(o *options) { o.scope = s } }

// WithLeft sets the left context.
func WithLeft(p Pattern) Option { return func(o *options) { o.left = p } }

// WithRight sets the right context.
func WithRight(p Pattern) Option { return func(o *options) { o.right = p } }

// WithIgnore adds patterns that may occur anywhere inside the violation and
// its contexts.
func WithIgnore(ns ...regex.Node) Option {
	return func(o *options) { o.ignore = append(o.ignore, ns...) }
}

// SingleSymbol skips interspersing ignorable material inside the violation.
// It is only safe when the violation is a single segment.
func SingleSymbol() Option { return func(o *options) { o.singleSymbol = true } }

// WithPrefix replaces the material that must directly precede the violation,
// which by default is everything up to an output segment. A nil prefix
// removes it.
func WithPrefix(n regex.Node) Option {
	return func(o *options) { o.prefix, o.prefixSet = n, true }
}

// RightOriented anchors a gradient at the right border of its scope.
func RightOriented() Option { return func(o *options) { o.rightward = true } }

// WithBorder replaces the scope border a gradient is anchored to.
func WithBorder(n regex.Node) Option { return func(o *options) { o.border = n } }

// WithMaxSize sets how many violations next to the border a gradient
// tolerates before marking.
func WithMaxSize(k int) Option { return func(o *options) { o.maxSize = k } }

// WithDepth sets how many distances from the border a horizontal gradient
// distinguishes.
func WithDepth(d int) Option { return func(o *options) { o.depth = d } }

// inherit returns the options a bundle passes on to its children.
func (o options) inherit(extra ...Option) []Option {
	out := []Option{
		WithScope(o.scope),
		WithLeft(o.left),
		WithRight(o.right),
		WithIgnore(o.ignore...),
		WithMaxSize(o.maxSize),
	}
	if o.singleSymbol {
		out = append(out, SingleSymbol())
	}
	if o.prefixSet {
		out = append(out, WithPrefix(o.prefix))
	}
	if o.rightward {
		out = append(out, RightOriented())
	}
	if o.border != nil {
		out = append(out, WithBorder(o.border))
	}
	return append(out, extra...)
}
