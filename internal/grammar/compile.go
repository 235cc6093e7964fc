package grammar

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/gen"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/phoneme"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/scope"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

// ErrMissingViolation is returned for a constraint kind that needs a
// violation pattern but has none.
var ErrMissingViolation = errors.New("constraint needs a violation pattern")

// Compiled is a grammar turned into engine-ready parts.
type Compiled struct {
	Name        string
	Method      penalty.Method
	Inventory   *phoneme.Inventory
	Output      *phoneme.Inventory
	Generator   *gen.MorphGen
	Constraints []*constraint.Constraint

	sym *symbols.Set
}

// Option configures Compile.
type Option func(*compiler)

// WithLogger sets the logger for inventory and generator warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSymbols sets the marker set. The default is symbols.Default().
func WithSymbols(sym *symbols.Set) Option {
	return func(c *compiler) {
		if sym != nil {
			c.sym = sym
		}
	}
}

type compiler struct {
	sym    *symbols.Set
	logger *zap.Logger
	inv    *phoneme.Inventory
	out    *phoneme.Inventory
	b      *constraint.Builder
}

// Compile builds the inventory, generator and constraints of g.
func Compile(g *Grammar, opts ...Option) (*Compiled, error) {
	c := &compiler{sym: symbols.Default(), logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	c.b = constraint.NewBuilder(c.sym)

	method := penalty.Matching
	if g.Method != "" {
		var err error
		if method, err = penalty.ParseMethod(g.Method); err != nil {
			return nil, err
		}
	}

	c.inv = phoneme.New(g.Inventory, phoneme.WithLogger(c.logger))
	c.out = c.inv
	if len(g.Generator.Output) > 0 {
		c.out = c.inv.Restrict(g.Generator.Output...)
	}

	mg, err := c.generator(g.Generator)
	if err != nil {
		return nil, err
	}

	cs := make([]*constraint.Constraint, 0, len(g.Constraints))
	for i, spec := range g.Constraints {
		con, err := c.constraint(spec)
		if err != nil {
			label := spec.Name
			if label == "" {
				label = spec.Kind
			}
			return nil, fmt.Errorf("constraint %d (%s): %w", i+1, label, err)
		}
		cs = append(cs, con)
	}
	c.logger.Debug("grammar compiled",
		zap.String("grammar", g.Name),
		zap.Int("phonemes", len(c.inv.Alphabet())),
		zap.Int("constraints", len(cs)))

	return &Compiled{
		Name:        g.Name,
		Method:      method,
		Inventory:   c.inv,
		Output:      c.out,
		Generator:   mg,
		Constraints: cs,
		sym:         c.sym,
	}, nil
}

// Tableau builds the generator automaton and returns an unbuilt tableau
// holding the compiled constraints. opts override the grammar's method and
// name.
func (c *Compiled) Tableau(ctx context.Context, e fst.Engine, opts ...tableau.Option) (*tableau.Tableau, error) {
	base := []tableau.Option{
		tableau.WithMethod(c.Method),
		tableau.WithName(c.Name),
		tableau.WithSymbols(c.sym),
	}
	t, err := tableau.FromGenerator(ctx, e, c.Generator, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	t.AddConstraints(c.Constraints...)
	return t, nil
}

func (c *compiler) generator(g Generator) (*gen.MorphGen, error) {
	opts := []gen.Option{gen.WithOutput(c.out), gen.WithLogger(c.logger)}
	if g.NoInsertion {
		opts = append(opts, gen.WithoutInsertion())
	}
	if g.NoDeletion {
		opts = append(opts, gen.WithoutDeletion())
	}
	if g.MaxInsertions > 0 {
		opts = append(opts, gen.WithMaxInsertions(g.MaxInsertions))
	}
	if g.Ignore != "" {
		opts = append(opts, gen.WithIgnore(regex.Text(g.Ignore)))
	}

	switch g.Syllabifier.Kind {
	case "", SyllabifierNone:
	case SyllabifierRandom:
		opts = append(opts, gen.WithSyllabifier(gen.NewRandomSyllabifier(c.sym)))
	case SyllabifierNuclear:
		var nopts []gen.NuclearOption
		if g.Syllabifier.FillOnset {
			nopts = append(nopts, gen.FillOnset())
		}
		if g.Syllabifier.Sonority {
			scale := make([]phoneme.Level, len(g.Syllabifier.Scale))
			for i, lvl := range g.Syllabifier.Scale {
				scale[i] = phoneme.Level(lvl)
			}
			nopts = append(nopts, gen.SonorityFilter(scale...))
		}
		opts = append(opts, gen.WithSyllabifier(gen.NewNuclearSyllabifier(c.sym, c.out, nopts...)))
	default:
		return nil, fmt.Errorf("%w: syllabifier %q", ErrInvalidGrammar, g.Syllabifier.Kind)
	}
	return gen.NewMorphGen(c.sym, c.inv, opts...), nil
}

func (c *compiler) constraint(s ConstraintSpec) (*constraint.Constraint, error) {
	opts, err := c.options(s)
	if err != nil {
		return nil, err
	}
	v := c.pattern(s.Violation)

	switch s.Kind {
	case KindMarkedness:
		if v.IsZero() {
			return nil, ErrMissingViolation
		}
		return c.b.Markedness(v, opts...)
	case KindMarkednessBundle:
		return c.b.MarkednessBundle(c.bundles(s), opts...)
	case KindFaithfulness:
		if v.IsZero() {
			return nil, ErrMissingViolation
		}
		return c.b.Faithfulness(v, opts...)
	case KindFaithfulnessBundle:
		return c.b.FaithfulnessBundle(c.bundles(s), opts...)
	case KindMaximality:
		return c.b.Maximality(v, opts...)
	case KindDependency:
		return c.b.Dependency(v, opts...)
	case KindGradient:
		if v.IsZero() {
			return nil, ErrMissingViolation
		}
		return c.b.Gradient(v, opts...)
	case KindHorizontalGradient:
		if v.IsZero() {
			return nil, ErrMissingViolation
		}
		return c.b.HorizontalGradient(v, opts...)
	case KindComplexOnset:
		return c.b.ComplexOnset(c.consonants(v), opts...)
	case KindComplexCoda:
		return c.b.ComplexCoda(c.consonants(v), opts...)
	case KindAssimilation:
		return c.b.Assimilation(c.inv.FeatureBundles(s.Bundles, s.Value, s.Filter...), opts...)
	case KindRaw:
		return c.b.Raw(s.Recipe, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}

func (c *compiler) options(s ConstraintSpec) ([]constraint.Option, error) {
	var opts []constraint.Option
	if s.Name != "" {
		opts = append(opts, constraint.WithName(s.Name))
	}
	if s.Precision != nil {
		opts = append(opts, constraint.WithPrecision(*s.Precision))
	}
	if s.Scope != "" {
		sc, err := scope.Parse(s.Scope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, constraint.WithScope(sc))
	}
	if !s.Left.IsZero() {
		opts = append(opts, constraint.WithLeft(c.pattern(s.Left)))
	}
	if !s.Right.IsZero() {
		opts = append(opts, constraint.WithRight(c.pattern(s.Right)))
	}
	if len(s.Ignore) > 0 {
		ns := make([]regex.Node, len(s.Ignore))
		for i, text := range s.Ignore {
			ns[i] = regex.Text(text)
		}
		opts = append(opts, constraint.WithIgnore(ns...))
	}
	if s.SingleSymbol {
		opts = append(opts, constraint.SingleSymbol())
	}
	if s.RightOriented {
		opts = append(opts, constraint.RightOriented())
	}
	if s.MaxSize != nil {
		opts = append(opts, constraint.WithMaxSize(*s.MaxSize))
	}
	if s.Depth > 0 {
		opts = append(opts, constraint.WithDepth(s.Depth))
	}
	return opts, nil
}

func (c *compiler) pattern(p Pattern) constraint.Pattern {
	switch {
	case p.Regex != "":
		return constraint.Regex(p.Regex)
	case len(p.Sequence) > 0:
		sets := make([][]string, len(p.Sequence))
		for i, sp := range p.Sequence {
			sets[i] = c.phonemes(sp)
		}
		return constraint.Sequence(sets...)
	case p.IsZero():
		return constraint.Pattern{}
	}
	return constraint.Phonemes(c.phonemes(p)...)
}

func (c *compiler) phonemes(p Pattern) []string {
	set := map[string]struct{}{}
	if p.All {
		for _, ph := range c.inv.Alphabet() {
			set[ph] = struct{}{}
		}
	}
	for _, ph := range p.Phonemes {
		set[ph] = struct{}{}
	}
	if len(p.Features) > 0 {
		for _, ph := range c.inv.Phonemes(p.Features...) {
			set[ph] = struct{}{}
		}
	}
	for _, ph := range p.Except {
		delete(set, ph)
	}
	return slices.Sorted(maps.Keys(set))
}

func (c *compiler) bundles(s ConstraintSpec) []constraint.Pattern {
	sets := c.inv.FeatureBundles(s.Bundles, s.Value, s.Filter...)
	out := make([]constraint.Pattern, len(sets))
	for i, set := range sets {
		out[i] = constraint.Phonemes(set...)
	}
	return out
}

// consonants defaults the segment pattern of complex onset and coda
// constraints to the non-syllabic phonemes.
func (c *compiler) consonants(p constraint.Pattern) constraint.Pattern {
	if !p.IsZero() {
		return p
	}
	return constraint.Phonemes(c.inv.Phonemes("-syllabic")...)
}
