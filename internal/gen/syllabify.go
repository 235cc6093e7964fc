package gen

import (
	"context"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/phoneme"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// Syllabifier inserts syllable and nucleus boundaries into candidates.
type Syllabifier interface {
	// Recipe returns the syllabification relation.
	Recipe() regex.Node

	// Syllabify compiles and minimizes the recipe.
	Syllabify(ctx context.Context, e fst.Engine) (fst.Transducer, error)
}

func compileMinimized(ctx context.Context, e fst.Engine, n regex.Node) (fst.Transducer, error) {
	t, err := e.Compile(ctx, n)
	if err != nil {
		return nil, err
	}
	if err := t.Minimize(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// RandomSyllabifier may put a syllable or nucleus boundary between any two
// segments.
type RandomSyllabifier struct {
	sym *symbols.Set
}

// NewRandomSyllabifier returns a RandomSyllabifier.
func NewRandomSyllabifier(sym *symbols.Set) *RandomSyllabifier {
	return &RandomSyllabifier{sym: sym}
}

func (r *RandomSyllabifier) Recipe() regex.Node {
	s := r.sym
	seg := regex.Seq(s.In(), regex.Plus(regex.Other(s.Out())), s.Out(), regex.Plus(regex.Other(s.In())))
	return regex.Replace(regex.Eps(), regex.OptionalReplace, regex.Alt(s.SylBound(), s.NuclBound()),
		regex.Between(nil, seg), regex.Between(seg, nil))
}

func (r *RandomSyllabifier) Syllabify(ctx context.Context, e fst.Engine) (fst.Transducer, error) {
	return compileMinimized(ctx, e, r.Recipe())
}

// NuclearSyllabifier builds syllables around +syllabic nuclei: every
// syllabic output segment is a nucleus, and the consonants between two
// nuclei are split by a syllable boundary.
type NuclearSyllabifier struct {
	sym       *symbols.Set
	inv       *phoneme.Inventory
	fillOnset bool
	sonority  bool
	scale     []phoneme.Level
}

// NuclearOption configures a NuclearSyllabifier.
type NuclearOption func(*NuclearSyllabifier)

// FillOnset forbids onsetless syllables anywhere but word-initially, so
// neither C.V nor V.V boundaries survive.
func FillOnset() NuclearOption { return func(n *NuclearSyllabifier) { n.fillOnset = true } }

// SonorityFilter requires sonority to rise towards each nucleus and fall
// after it. The inventory's default scale is used unless one is given.
func SonorityFilter(scale ...phoneme.Level) NuclearOption {
	return func(n *NuclearSyllabifier) {
		n.sonority = true
		n.scale = scale
	}
}

// NewNuclearSyllabifier returns a syllabifier reading nuclei and consonants
// off inv.
func NewNuclearSyllabifier(sym *symbols.Set, inv *phoneme.Inventory, opts ...NuclearOption) *NuclearSyllabifier {
	n := &NuclearSyllabifier{sym: sym, inv: inv}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *NuclearSyllabifier) outSeg(ps []string) regex.Node {
	return regex.Seq(n.sym.OutPrefix(), regex.Syms(ps...))
}

func (n *NuclearSyllabifier) Recipe() regex.Node {
	s := n.sym
	v := n.outSeg(n.inv.Phonemes("+syllabic"))
	c := n.outSeg(n.inv.Phonemes("-syllabic"))

	parts := []regex.Node{
		regex.Markup(v, regex.Obligatory, s.NuclBound(), s.NuclBound()),
		regex.Replace(regex.Eps(), regex.Obligatory, s.SylBound(),
			regex.Between(regex.Seq(s.NuclBound(), regex.Star(c)), regex.Seq(regex.Star(c), s.NuclBound()))).
			In(regex.Lower),
		regex.Markup(regex.Universal(), regex.Obligatory, s.SylBound(), s.SylBound(),
			regex.Between(regex.Boundary(), regex.Boundary())),
	}
	if n.fillOnset {
		parts = append(parts, regex.Not(regex.Contains(regex.Seq(regex.Any(), s.SylBound(), s.NuclBound()))))
	}
	if n.sonority {
		parts = append(parts, n.sonorityFilter(v))
	}
	return regex.Chain(parts...)
}

// sonorityFilter accepts syllable sequences whose onsets rise and codas fall
// along the scale. The first, most sonorous level holds the nuclei and is
// skipped.
func (n *NuclearSyllabifier) sonorityFilter(v regex.Node) regex.Node {
	levels, _ := n.inv.SonorityScale(n.scale...)
	var layers []regex.Node
	if len(levels) > 1 {
		for _, l := range levels[1:] {
			if len(l) > 0 {
				layers = append(layers, regex.Star(n.outSeg(l)))
			}
		}
	}
	syl := make([]regex.Node, 0, 2*len(layers)+4)
	for i := len(layers) - 1; i >= 0; i-- {
		syl = append(syl, layers[i])
	}
	syl = append(syl, n.sym.NuclBound(), v, n.sym.NuclBound())
	syl = append(syl, layers...)
	syl = append(syl, n.sym.SylBound())
	return regex.Seq(n.sym.SylBound(), regex.Plus(regex.Seq(syl...)))
}

func (n *NuclearSyllabifier) Syllabify(ctx context.Context, e fst.Engine) (fst.Transducer, error) {
	return compileMinimized(ctx, e, n.Recipe())
}
