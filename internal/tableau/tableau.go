// Package tableau evaluates ranked constraints against a candidate
// generator as a pipeline of finite-state stages.
//
// Build applies the constraints one at a time in ranking order. Each stage
// marks violations, snapshots the marked candidates ("before"), removes the
// candidates that are worse than some competitor, snapshots the survivors
// ("after") and strips the marks. The last stage is cleaned of tape and
// boundary markers so that the final automaton maps plain input strings to
// plain winners.
//
// Run looks winners up in the final automaton; Trace walks the snapshots
// to show where candidates die. A built tableau can be saved to a
// .tableau/.hfst pair and loaded back.
package tableau

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/gen"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// InstrumentationName is the tracer scope of this package.
const InstrumentationName = "github.com/fyrsmithlabs/otgrammar/internal/tableau"

// DefaultResults is the default number of winners or candidates looked up.
const DefaultResults = 10

var (
	// ErrAlreadyBuilt is returned by Build on a built or loaded tableau.
	ErrAlreadyBuilt = errors.New("tableau already built")

	// ErrNotBuilt is returned by Run, Trace and Save before Build.
	ErrNotBuilt = errors.New("tableau not built")

	// ErrStageMismatch is returned by Load when the automaton stream does
	// not hold one before/after pair per constraint.
	ErrStageMismatch = errors.New("tableau stages do not match automaton stream")

	// ErrMalformedTableau is returned by Load for an unreadable .tableau file.
	ErrMalformedTableau = errors.New("malformed tableau file")
)

// Stage holds the snapshots taken while applying one constraint.
type Stage struct {
	Constraint *constraint.Constraint

	// Before holds the candidates with this constraint's violations marked.
	Before fst.Transducer

	// After holds the survivors, marks still in place.
	After fst.Transducer
}

// Tableau is a ranked constraint hierarchy over a candidate generator.
//
// Build must complete before Run, Trace or Save. Once built, Run and Trace
// may be called concurrently.
type Tableau struct {
	engine fst.Engine
	sym    *symbols.Set
	method penalty.Method
	name   string
	logger *logging.Logger
	tracer trace.Tracer
	ins    *instruments

	mu          sync.RWMutex
	gen         fst.Transducer
	constraints []*constraint.Constraint
	stages      []Stage
	final       fst.Transducer
	built       bool
}

// Option configures a Tableau.
type Option func(*Tableau)

// WithMethod selects the penalization method. The default is matching.
func WithMethod(m penalty.Method) Option { return func(t *Tableau) { t.method = m } }

// WithName names the tableau in logs and spans.
func WithName(name string) Option { return func(t *Tableau) { t.name = name } }

// WithSymbols sets the marker set used for penalization and cleanup.
func WithSymbols(sym *symbols.Set) Option { return func(t *Tableau) { t.sym = sym } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tableau) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTracer sets the tracer. The global provider is used by default.
func WithTracer(tr trace.Tracer) Option {
	return func(t *Tableau) {
		if tr != nil {
			t.tracer = tr
		}
	}
}

// WithMeter sets the meter for OTLP metrics. The global provider is used by
// default.
func WithMeter(m metric.Meter) Option {
	return func(t *Tableau) {
		if m != nil {
			t.ins = newInstruments(m)
		}
	}
}

// New returns a tableau over the generator automaton candidates, which it
// takes ownership of.
func New(e fst.Engine, candidates fst.Transducer, opts ...Option) *Tableau {
	t := &Tableau{
		engine: e,
		gen:    candidates,
		sym:    symbols.Default(),
		method: penalty.Matching,
		logger: logging.Nop(),
		tracer: otel.Tracer(InstrumentationName),
	}
	for _, o := range opts {
		o(t)
	}
	if t.ins == nil {
		t.ins = newInstruments(otel.Meter(InstrumentationName))
	}
	return t
}

// FromGenerator builds the generator automaton and returns a tableau over it.
func FromGenerator(ctx context.Context, e fst.Engine, g gen.Generator, opts ...Option) (*Tableau, error) {
	candidates, err := g.Generate(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return New(e, candidates, opts...), nil
}

// AddConstraint appends c below every constraint added so far.
func (t *Tableau) AddConstraint(c *constraint.Constraint) {
	t.AddConstraints(c)
}

// AddConstraints appends cs in ranking order, highest first.
func (t *Tableau) AddConstraints(cs ...*constraint.Constraint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.constraints = append(t.constraints, cs...)
}

// Constraints returns the ranking, highest first.
func (t *Tableau) Constraints() []*constraint.Constraint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*constraint.Constraint(nil), t.constraints...)
}

// Method returns the penalization method.
func (t *Tableau) Method() penalty.Method { return t.method }

// Name returns the tableau name.
func (t *Tableau) Name() string { return t.name }

// Built reports whether the tableau is ready for Run and Trace.
func (t *Tableau) Built() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.built
}

// Close releases every automaton the tableau owns.
func (t *Tableau) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := []fst.Transducer{t.gen, t.final}
	for _, s := range t.stages {
		ts = append(ts, s.Before, s.After)
	}
	t.gen, t.final, t.stages, t.built = nil, nil, nil, false
	return fst.CloseAll(ts...)
}

func (t *Tableau) context(ctx context.Context) context.Context {
	if t.name == "" {
		return ctx
	}
	return logging.WithTableau(ctx, t.name)
}

// optimize converts tr to lookup form unless it is infinitely ambiguous,
// which the lookup format cannot hold.
func (t *Tableau) optimize(ctx context.Context, tr fst.Transducer) (infinite bool, err error) {
	infinite, err = tr.IsInfinitelyAmbiguous(ctx)
	if err != nil {
		return false, err
	}
	if infinite {
		return true, nil
	}
	return false, tr.OptimizeLookup(ctx)
}

func (t *Tableau) logSize(ctx context.Context, msg string, tr fst.Transducer, fields ...zap.Field) {
	if !t.logger.Enabled(zap.DebugLevel) {
		return
	}
	size, err := tr.Size(ctx)
	if err != nil {
		t.logger.Warn(ctx, "automaton summary failed", zap.Error(err))
		return
	}
	t.logger.Debug(ctx, msg, append(fields, logging.Automaton(size.States, size.Arcs))...)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func spanAttrs(t *Tableau) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("tableau.name", t.name),
		attribute.String("penalty.method", string(t.method)),
	)
}
