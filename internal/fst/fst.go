// Package fst defines the finite-state transducer engine the grammar
// compiler drives.
//
// Recipes are handed to an Engine as regex trees and come back as
// Transducers. Binary operations mutate the receiver in place and leave the
// argument untouched, so callers that need an earlier state take a Copy first.
// Every Transducer holds engine resources until Close is called.
package fst

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

var (
	// ErrEngine wraps failures reported by the underlying engine, including
	// recipes it cannot compile.
	ErrEngine = errors.New("fst engine failure")

	// ErrClosed is returned when a closed transducer is used.
	ErrClosed = errors.New("transducer closed")
)

// Path is one lookup result.
type Path struct {
	Output string
	Weight float64
}

// Size summarises a transducer.
type Size struct {
	States int
	Arcs   int
}

// Engine compiles recipes and moves transducers in and out of streams.
type Engine interface {
	// Compile turns a recipe into a transducer.
	Compile(ctx context.Context, n regex.Node) (Transducer, error)

	// WriteAll writes the transducers to w as one ordered stream.
	WriteAll(ctx context.Context, w io.Writer, ts []Transducer) error

	// ReadAll reads every transducer from a stream written by WriteAll.
	ReadAll(ctx context.Context, r io.Reader) ([]Transducer, error)

	// Close releases engine resources. Transducers from a closed engine are
	// unusable.
	Close() error
}

// Transducer is a weighted finite-state transducer owned by an Engine.
type Transducer interface {
	// Compose replaces t with t .o. other.
	Compose(ctx context.Context, other Transducer) error

	// LenientCompose replaces t with [t .o. other] .P. t: paths of t whose
	// input has no path through other are kept as they are.
	LenientCompose(ctx context.Context, other Transducer) error

	// Disjunct replaces t with t | other.
	Disjunct(ctx context.Context, other Transducer) error

	// Subtract replaces t with t - other.
	Subtract(ctx context.Context, other Transducer) error

	// RepeatStar replaces t with t*.
	RepeatStar(ctx context.Context) error

	// Minimize determinises and minimises t.
	Minimize(ctx context.Context) error

	// Copy returns an independent clone.
	Copy(ctx context.Context) (Transducer, error)

	// OptimizeLookup prepares t for fast lookup. Later mutations discard
	// the prepared form.
	OptimizeLookup(ctx context.Context) error

	// IsInfinitelyAmbiguous reports whether some input has unboundedly many
	// outputs.
	IsInfinitelyAmbiguous(ctx context.Context) (bool, error)

	// Lookup returns at most max paths for input, in no particular order.
	Lookup(ctx context.Context, input string, max int) ([]Path, error)

	// Size reports state and arc counts.
	Size(ctx context.Context) (Size, error)

	// Close releases the transducer.
	Close() error
}

// Apply compiles n and composes it onto t.
func Apply(ctx context.Context, e Engine, t Transducer, n regex.Node) error {
	r, err := e.Compile(ctx, n)
	if err != nil {
		return err
	}
	defer r.Close()
	return t.Compose(ctx, r)
}

// ApplyLenient compiles n and leniently composes it onto t.
func ApplyLenient(ctx context.Context, e Engine, t Transducer, n regex.Node) error {
	r, err := e.Compile(ctx, n)
	if err != nil {
		return err
	}
	defer r.Close()
	return t.LenientCompose(ctx, r)
}

// Outputs looks up input and returns the set of distinct outputs.
func Outputs(ctx context.Context, t Transducer, input string, max int) (map[string]struct{}, error) {
	paths, err := t.Lookup(ctx, input, max)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		out[p.Output] = struct{}{}
	}
	return out, nil
}

// CloseAll closes every non-nil transducer and joins the errors.
func CloseAll(ts ...Transducer) error {
	var errs []error
	for _, t := range ts {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EngineError wraps err as an ErrEngine for operation op.
func EngineError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEngine, op, err)
}
