// Package penalty removes losing candidates from a violation-marked
// candidate set.
//
// Two methods are available. Matching subtracts every candidate that a
// strictly worse relabelling of another candidate can imitate; it needs no
// bound on violation counts. Counting keeps, for each input, the candidates
// with the fewest marks up to a precision n; candidates with more than n
// marks are all treated as having n.
package penalty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// ErrUnknownMethod is returned by ParseMethod.
var ErrUnknownMethod = errors.New("unknown penalization method")

// Method selects how losers are removed.
type Method string

const (
	Matching Method = "matching"
	Counting Method = "counting"
)

// ParseMethod resolves a method name. The empty string means Matching.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", Matching:
		return Matching, nil
	case Counting:
		return Counting, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Penalizer builds and applies penalization recipes.
type Penalizer struct {
	sym *symbols.Set
}

// New returns a Penalizer for the given marker set.
func New(sym *symbols.Set) *Penalizer {
	return &Penalizer{sym: sym}
}

// Penalize removes losers from candidates in place. Violation marks are
// left on the survivors; call Pardon to strip them.
func (p *Penalizer) Penalize(ctx context.Context, e fst.Engine, candidates fst.Transducer, n int, m Method) error {
	switch m {
	case Counting:
		return p.count(ctx, e, candidates, n)
	case Matching, "":
		return p.match(ctx, e, candidates)
	}
	return fmt.Errorf("%w: %q", ErrUnknownMethod, string(m))
}

func (p *Penalizer) count(ctx context.Context, e fst.Engine, candidates fst.Transducer, n int) error {
	for i := n; i >= 0; i-- {
		if err := fst.ApplyLenient(ctx, e, candidates, OnlyN(p.sym.Mark(), i)); err != nil {
			return fmt.Errorf("count penalty %d: %w", i, err)
		}
	}
	return nil
}

func (p *Penalizer) match(ctx context.Context, e fst.Engine, candidates fst.Transducer) error {
	worse, err := candidates.Copy(ctx)
	if err != nil {
		return err
	}
	defer worse.Close()

	for _, r := range p.WorseRecipes() {
		if err := fst.Apply(ctx, e, worse, r); err != nil {
			return fmt.Errorf("build worse candidates: %w", err)
		}
	}
	if err := candidates.Subtract(ctx, worse); err != nil {
		return err
	}
	return candidates.Minimize(ctx)
}

// WorseRecipes returns, in composition order, the recipes that turn a
// candidate set into the set of strictly worse candidates: strip everything
// but input segments, marks and boundaries; add at least one mark; move marks
// around in both directions; mutate output freely.
func (p *Penalizer) WorseRecipes() []regex.Node {
	s := p.sym
	mark := s.Mark()
	strip := regex.Star(regex.Alt(
		regex.Seq(regex.Delete(s.In()), regex.PriorityUnion(regex.Delete(s.No()), regex.Any())),
		regex.Delete(regex.Seq(s.Out(), regex.Any())),
		regex.Delete(s.Bounds()),
		mark,
	))
	insertMarks := regex.Plus(regex.Seq(regex.Universal(), regex.Plus(regex.Insert(mark)), regex.Universal()))
	permuteRight := regex.Star(regex.Seq(
		regex.Universal(), regex.Delete(mark), regex.Universal(), regex.Insert(mark), regex.Universal()))
	permuteLeft := regex.Star(regex.Seq(
		regex.Universal(), regex.Insert(mark), regex.Universal(), regex.Delete(mark), regex.Universal()))
	mutate := regex.Star(regex.Alt(regex.Any(), regex.Insert(regex.Any())))
	return []regex.Node{strip, insertMarks, permuteRight, permuteLeft, mutate}
}

// Pardon strips violation marks from candidates in place.
func (p *Penalizer) Pardon(ctx context.Context, e fst.Engine, candidates fst.Transducer) error {
	return fst.Apply(ctx, e, candidates, p.PardonRecipe())
}

// PardonRecipe deletes every violation mark.
func (p *Penalizer) PardonRecipe() regex.Node {
	return regex.Replace(p.sym.Mark(), regex.Obligatory, regex.Eps())
}

// OnlyN accepts strings with at most n occurrences of x.
func OnlyN(x regex.Node, n int) regex.Node {
	return regex.Not(regex.IgnoreIn(regex.MoreThan(x, n), regex.Any()))
}

// AtMostN accepts strings with at most k non-overlapping occurrences of the
// string pattern x, which may span several symbols.
func AtMostN(x regex.Node, k int) regex.Node {
	return regex.Not(regex.Seq(regex.MoreThan(regex.Seq(regex.Universal(), x), k), regex.Universal()))
}
