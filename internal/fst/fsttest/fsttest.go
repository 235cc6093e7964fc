// Package fsttest provides a recording fst.Engine for tests.
//
// The fake does not evaluate automata. Each Transducer keeps the list of
// operations that produced it, lookups answer from canned results, and
// infinite ambiguity is decided by a hook. That is enough to check that
// callers build, stage, persist and release transducers correctly.
package fsttest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

// Engine is a fake fst.Engine.
type Engine struct {
	// Results maps a lookup input to the outputs of every transducer.
	Results map[string][]string

	// LookupFunc overrides Results when set.
	LookupFunc func(t *Transducer, input string) []string

	// InfiniteFunc decides infinite ambiguity. Nil means never.
	InfiniteFunc func(t *Transducer) bool

	// CompileErr fails compilation of recipes for which it returns an error.
	CompileErr func(recipe string) error

	mu     sync.Mutex
	nextID int
	log    []string
	live   map[int]*Transducer
	closed bool
}

var _ fst.Engine = (*Engine)(nil)

// NewEngine returns an empty fake engine.
func NewEngine() *Engine {
	return &Engine{
		Results: map[string][]string{},
		live:    map[int]*Transducer{},
	}
}

// Compile records the rendered recipe.
func (e *Engine) Compile(_ context.Context, n regex.Node) (fst.Transducer, error) {
	text := regex.Render(n)
	if e.CompileErr != nil {
		if err := e.CompileErr(text); err != nil {
			return nil, fst.EngineError("compile", err)
		}
	}
	e.record("compile " + text)
	return e.newTransducer([]string{"compile " + text}), nil
}

// Compiled returns every recipe compiled so far, in order.
func (e *Engine) Compiled() []string {
	var out []string
	for _, l := range e.Log() {
		if r, ok := strings.CutPrefix(l, "compile "); ok {
			out = append(out, r)
		}
	}
	return out
}

// Log returns the engine wide operation log.
func (e *Engine) Log() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// Live returns the number of transducers not yet closed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

type record struct {
	Steps []string `json:"steps"`
}

// WriteAll encodes the step lists of ts as JSON.
func (e *Engine) WriteAll(_ context.Context, w io.Writer, ts []fst.Transducer) error {
	recs := make([]record, 0, len(ts))
	for _, t := range ts {
		ft, err := e.own(t)
		if err != nil {
			return err
		}
		recs = append(recs, record{Steps: ft.Steps()})
	}
	e.record(fmt.Sprintf("write %d", len(ts)))
	return json.NewEncoder(w).Encode(recs)
}

// ReadAll decodes transducers written by WriteAll.
func (e *Engine) ReadAll(_ context.Context, r io.Reader) ([]fst.Transducer, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fst.EngineError("read", err)
	}
	out := make([]fst.Transducer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, e.newTransducer(rec.Steps))
	}
	e.record(fmt.Sprintf("read %d", len(recs)))
	return out, nil
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *Engine) newTransducer(steps []string) *Transducer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	t := &Transducer{e: e, ID: e.nextID, steps: append([]string(nil), steps...)}
	e.live[t.ID] = t
	return t
}

func (e *Engine) record(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, s)
}

func (e *Engine) own(t fst.Transducer) (*Transducer, error) {
	ft, ok := t.(*Transducer)
	if !ok || ft.e != e {
		return nil, fmt.Errorf("%w: foreign transducer %T", fst.ErrEngine, t)
	}
	if ft.closed {
		return nil, fst.ErrClosed
	}
	return ft, nil
}
