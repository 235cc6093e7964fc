// Package gen builds candidate generators: transducers mapping an input
// form to every output candidate, aligned segment by segment with tape
// markers and optionally syllabified.
package gen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/phoneme"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// Generator produces a candidate generator transducer.
type Generator interface {
	Generate(ctx context.Context, e fst.Engine) (fst.Transducer, error)
}

// MorphGen generates candidates by substitution, insertion and deletion of
// segments.
type MorphGen struct {
	sym      *symbols.Set
	in, out  *phoneme.Inventory
	syl      Syllabifier
	ignore   regex.Node
	allowIns bool
	allowDel bool
	maxIns   int
	logger   *zap.Logger
}

var _ Generator = (*MorphGen)(nil)

// Option configures a MorphGen.
type Option func(*MorphGen)

// WithOutput restricts output segments to a different inventory.
func WithOutput(inv *phoneme.Inventory) Option { return func(g *MorphGen) { g.out = inv } }

// WithSyllabifier inserts syllable structure into every candidate.
func WithSyllabifier(s Syllabifier) Option { return func(g *MorphGen) { g.syl = s } }

// WithIgnore passes input material matching n through unchanged.
func WithIgnore(n regex.Node) Option { return func(g *MorphGen) { g.ignore = n } }

// WithoutInsertion disables inserted segments.
func WithoutInsertion() Option { return func(g *MorphGen) { g.allowIns = false } }

// WithoutDeletion disables deleted segments.
func WithoutDeletion() Option { return func(g *MorphGen) { g.allowDel = false } }

// WithMaxInsertions bounds the number of inserted segments. Zero means no
// bound.
func WithMaxInsertions(k int) Option { return func(g *MorphGen) { g.maxIns = k } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *MorphGen) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewMorphGen returns a generator over the input inventory. Insertion and
// deletion are enabled by default.
func NewMorphGen(sym *symbols.Set, in *phoneme.Inventory, opts ...Option) *MorphGen {
	g := &MorphGen{sym: sym, in: in, out: in, allowIns: true, allowDel: true, logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Syllabifier returns the configured syllabifier, nil when there is none.
func (g *MorphGen) Syllabifier() Syllabifier { return g.syl }

// Recipes returns the parts the generator is assembled from: the input
// tagger and the single-segment edit alternatives, before starring.
func (g *MorphGen) Recipes() (tagger regex.Node, edits []regex.Node) {
	s := g.sym
	alph := regex.Syms(g.in.Alphabet()...)
	mut := regex.Syms(g.out.Alphabet()...)

	tagger = regex.Star(regex.Alt(
		regex.Delete(s.SylBound()),
		regex.Seq(regex.Insert(s.In()), alph),
		g.ignore,
	))

	inSeg := regex.Seq(s.In(), alph)
	edits = append(edits, regex.Seq(inSeg, regex.Insert(regex.Seq(s.Out(), mut))))
	if g.ignore != nil {
		edits = append(edits, g.ignore)
	}
	if g.allowIns {
		edits = append(edits, regex.Insert(regex.Seq(s.In(), s.No(), s.Out(), mut)))
	}
	if g.allowDel {
		edits = append(edits, regex.Seq(inSeg, regex.Insert(regex.Seq(s.Out(), s.No()))))
	}
	return tagger, edits
}

// Surround is the recipe wrapping every candidate in word boundaries.
func (g *MorphGen) Surround() regex.Node {
	return regex.Markup(regex.Universal(), regex.Obligatory, g.sym.WordBound(), g.sym.WordBound(),
		regex.Between(regex.Boundary(), regex.Boundary()))
}

// Generate builds and minimizes the generator.
func (g *MorphGen) Generate(ctx context.Context, e fst.Engine) (fst.Transducer, error) {
	tagger, edits := g.Recipes()

	out, err := e.Compile(ctx, tagger)
	if err != nil {
		return nil, fmt.Errorf("generator input: %w", err)
	}
	if err := g.build(ctx, e, out, edits); err != nil {
		out.Close()
		return nil, err
	}
	if size, err := out.Size(ctx); err == nil {
		g.logger.Debug("generator built", logging.Automaton(size.States, size.Arcs))
	}
	return out, nil
}

func (g *MorphGen) build(ctx context.Context, e fst.Engine, out fst.Transducer, edits []regex.Node) error {
	edit, err := e.Compile(ctx, edits[0])
	if err != nil {
		return fmt.Errorf("generator edits: %w", err)
	}
	defer edit.Close()
	for _, r := range edits[1:] {
		alt, err := e.Compile(ctx, r)
		if err != nil {
			return fmt.Errorf("generator edits: %w", err)
		}
		err = edit.Disjunct(ctx, alt)
		alt.Close()
		if err != nil {
			return err
		}
	}
	if err := edit.RepeatStar(ctx); err != nil {
		return err
	}
	if err := out.Compose(ctx, edit); err != nil {
		return err
	}

	if g.maxIns > 0 {
		if err := fst.Apply(ctx, e, out, penalty.AtMostN(g.sym.Insertion(), g.maxIns)); err != nil {
			return fmt.Errorf("insertion bound: %w", err)
		}
	}

	if g.syl != nil {
		syl, err := g.syl.Syllabify(ctx, e)
		if err != nil {
			return fmt.Errorf("syllabifier: %w", err)
		}
		err = out.Compose(ctx, syl)
		syl.Close()
		if err != nil {
			return err
		}
	}

	if err := fst.Apply(ctx, e, out, g.Surround()); err != nil {
		return fmt.Errorf("word boundaries: %w", err)
	}
	return out.Minimize(ctx)
}
