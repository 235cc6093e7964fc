package tableau

import (
	"context"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
)

// Stages returns the snapshots of a built tableau in ranking order. The
// automata stay owned by the tableau.
func (t *Tableau) Stages() []Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Stage(nil), t.stages...)
}

// Snapshot describes one automaton of a built tableau.
type Snapshot struct {
	// Slot is the position in the saved automaton stream.
	Slot int

	// Stage is 0 for the generator, i for the i-th constraint and
	// len(constraints)+1 for the final automaton.
	Stage      int
	Constraint string
	Kind       string // generator, before, after or final
	Size       fst.Size
	Infinite   bool
}

// Inspect summarizes every automaton in slot order.
func (t *Tableau) Inspect(ctx context.Context) ([]Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.built {
		return nil, ErrNotBuilt
	}

	out := make([]Snapshot, 0, 2*len(t.stages)+2)
	add := func(tr fst.Transducer, stage int, name, kind string) error {
		size, err := tr.Size(ctx)
		if err != nil {
			return err
		}
		inf, err := tr.IsInfinitelyAmbiguous(ctx)
		if err != nil {
			return err
		}
		out = append(out, Snapshot{Slot: len(out), Stage: stage, Constraint: name, Kind: kind, Size: size, Infinite: inf})
		return nil
	}

	if err := add(t.gen, 0, "", "generator"); err != nil {
		return nil, err
	}
	for i, s := range t.stages {
		if err := add(s.Before, i+1, s.Constraint.Name(), "before"); err != nil {
			return nil, err
		}
		if err := add(s.After, i+1, s.Constraint.Name(), "after"); err != nil {
			return nil, err
		}
	}
	if err := add(t.final, len(t.stages)+1, "", "final"); err != nil {
		return nil, err
	}
	return out, nil
}
