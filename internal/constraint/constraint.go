package constraint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

var (
	// ErrNegativePrecision is returned for a negative penalization precision.
	ErrNegativePrecision = errors.New("negative penalization precision")

	// ErrInvalidName is returned for a name that would break the
	// tab-separated .tableau line of its constraint.
	ErrInvalidName = errors.New("constraint name contains a tab or line break")
)

// Default precisions.
const (
	DefaultPrecision          = 5
	DefaultBundlePrecision    = 15
	DefaultStructurePrecision = 10
)

// Kind tells single constraints from bundles.
type Kind int

const (
	KindSingle Kind = iota
	KindBundle
)

func (k Kind) String() string {
	if k == KindBundle {
		return "bundle"
	}
	return "single"
}

// Constraint is a compiled, immutable constraint.
type Constraint struct {
	name     string
	n        int
	kind     Kind
	recipe   regex.Node
	children []*Constraint
}

// Name returns the display name.
func (c *Constraint) Name() string { return c.name }

// Precision returns the penalization precision.
func (c *Constraint) Precision() int { return c.n }

// Kind returns whether c is a single constraint or a bundle.
func (c *Constraint) Kind() Kind { return c.kind }

// Recipe returns the violation-marking recipe.
func (c *Constraint) Recipe() regex.Node { return c.recipe }

// Children returns the members of a bundle.
func (c *Constraint) Children() []*Constraint {
	return append([]*Constraint(nil), c.children...)
}

// String renders c as "name<TAB>precision<TAB>recipe".
func (c *Constraint) String() string {
	return c.name + "\t" + strconv.Itoa(c.n) + "\t" + regex.Render(c.recipe)
}

// Mark composes the violation-marking recipe onto candidates.
func (c *Constraint) Mark(ctx context.Context, e fst.Engine, candidates fst.Transducer) error {
	if err := fst.Apply(ctx, e, candidates, c.recipe); err != nil {
		return fmt.Errorf("constraint %s: %w", c.name, err)
	}
	return nil
}

// Builder creates constraints over a marker set.
type Builder struct {
	sym *symbols.Set
}

// NewBuilder returns a Builder for sym.
func NewBuilder(sym *symbols.Set) *Builder {
	return &Builder{sym: sym}
}

// Symbols returns the marker set.
func (b *Builder) Symbols() *symbols.Set { return b.sym }

func (b *Builder) finish(kind Kind, recipe regex.Node, children []*Constraint, o options) (*Constraint, error) {
	if o.n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativePrecision, o.n)
	}
	if strings.ContainsAny(o.name, "\t\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, o.name)
	}
	name := o.name
	if name == "" {
		name = uuid.NewString()[:8]
	}
	return &Constraint{name: name, n: o.n, kind: kind, recipe: recipe, children: children}, nil
}

// Single marks every shortest match of violation, optionally restricted to a
// left and right context. Either context may be nil.
func (b *Builder) Single(violation, left, right regex.Node, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	return b.finish(KindSingle, b.single(violation, left, right), nil, o)
}

func (b *Builder) single(violation, left, right regex.Node) regex.Node {
	if left == nil && right == nil {
		return regex.Markup(violation, regex.Shortest, nil, b.sym.Mark())
	}
	return regex.Markup(violation, regex.Shortest, nil, b.sym.Mark(), regex.Between(left, right))
}

// Bundle composes the recipes of children into one constraint penalized as a
// unit. An empty bundle marks nothing.
func (b *Builder) Bundle(children []*Constraint, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultBundlePrecision, nil, opts)
	recipes := make([]regex.Node, 0, len(children))
	for _, c := range children {
		recipes = append(recipes, c.recipe)
	}
	var recipe regex.Node = regex.Chain(recipes...)
	if len(recipes) == 0 {
		recipe = regex.Universal()
	}
	return b.finish(KindBundle, recipe, append([]*Constraint(nil), children...), o)
}

// Raw wraps a recipe given as text, as read back from a saved tableau.
func (b *Builder) Raw(recipe string, opts ...Option) (*Constraint, error) {
	o := newOptions(DefaultPrecision, nil, opts)
	if strings.ContainsAny(recipe, "\r\n") {
		return nil, fmt.Errorf("constraint %s: recipe spans several lines", o.name)
	}
	return b.finish(KindSingle, regex.Text(recipe), nil, o)
}
