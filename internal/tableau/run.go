package tableau

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// RunResult reports the winners for one input.
type RunResult struct {
	Input   string
	Desired string
	Regex   bool

	// Wins reports whether Desired is among the winners. It is false when
	// TooMany is set.
	Wins bool

	// TooMany is set when more than N distinct winners exist; Winners is
	// then a truncated sample.
	TooMany bool

	// Winners lists the winners other than Desired, sorted, at most N.
	Winners []string

	N int
}

type runOptions struct {
	regex bool
}

// RunOption configures Run.
type RunOption func(*runOptions)

// AsRegex treats the desired winner as a regular expression that must match
// a whole winner.
func AsRegex() RunOption { return func(o *runOptions) { o.regex = true } }

// Run looks up the winners for input and checks desired against them. An
// empty desired means the faithful winner, input itself. Up to 2n winners
// are looked up so that more than n can be reported as too many.
//
// With AsRegex every winner matching desired is collapsed into desired
// itself; the report does not say which concrete winners matched.
func (t *Tableau) Run(ctx context.Context, input, desired string, n int, opts ...RunOption) (*RunResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if n <= 0 {
		n = DefaultResults
	}
	if desired == "" {
		desired = input
	}

	var re *regexp.Regexp
	if o.regex {
		var err error
		if re, err = regexp.Compile("^(?:" + desired + ")$"); err != nil {
			return nil, fmt.Errorf("desired winner: %w", err)
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.built {
		return nil, ErrNotBuilt
	}

	ctx, span := t.tracer.Start(t.context(ctx), "tableau.Run", spanAttrs(t),
		trace.WithAttributes(attribute.String("run.input", input), attribute.Int("run.n", n)))
	defer span.End()

	winners, err := t.lookup(ctx, t.final, input, 2*n, "run")
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	res := &RunResult{Input: input, Desired: desired, Regex: o.regex, N: n, TooMany: len(winners) > n}

	if re != nil {
		matched := false
		for w := range winners {
			if re.MatchString(w) {
				delete(winners, w)
				matched = true
			}
		}
		if matched {
			winners[desired] = struct{}{}
		}
	}

	if !res.TooMany {
		if _, ok := winners[desired]; ok {
			res.Wins = true
			delete(winners, desired)
		}
	}
	res.Winners = sorted(winners)
	if len(res.Winners) > n {
		res.Winners = res.Winners[:n]
	}
	span.SetAttributes(attribute.Bool("run.wins", res.Wins), attribute.Bool("run.too_many", res.TooMany))
	return res, nil
}

// Status describes how completely a candidate set is known.
type Status int

const (
	// Exact means every member is listed.
	Exact Status = iota
	// Infinite means the set is infinite; nothing is listed.
	Infinite
	// Exceeds means the set has more than N members; nothing is listed.
	Exceeds
	// AtMost means the set has at most N members but their number is not
	// known exactly.
	AtMost
)

func (s Status) String() string {
	switch s {
	case Exact:
		return "exact"
	case Infinite:
		return "infinite"
	case Exceeds:
		return "exceeds"
	case AtMost:
		return "at-most"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Listing is the candidate set of one snapshot for one input.
type Listing struct {
	Status Status

	// Traced and Untraced partition the members when Status is Exact.
	// A member is traced when it equals a traced form once every marker
	// is removed.
	Traced   []string
	Untraced []string
}

// Count returns the number of members when Status is Exact.
func (l Listing) Count() int { return len(l.Traced) + len(l.Untraced) }

// TraceStep is the state of the candidates after one stage. Step 0 lists
// the generator's candidates; step i the fatalities and survivors of the
// i-th constraint.
type TraceStep struct {
	Index      int
	Constraint string

	Candidates Listing
	Fatalities Listing
	Survivors  Listing
}

// TraceResult collects the steps of a trace.
type TraceResult struct {
	Input  string
	Traced []string
	N      int
	Steps  []TraceStep
}

type traceOptions struct {
	verbose bool
}

// TraceOption configures Trace.
type TraceOption func(*traceOptions)

// Verbose keeps alignment markers in listed candidates.
func Verbose() TraceOption { return func(o *traceOptions) { o.verbose = true } }

// Trace follows the candidates for input through every stage. At most n
// candidates are listed per snapshot; infinitely ambiguous snapshots are
// reported as Infinite without enumeration.
func (t *Tableau) Trace(ctx context.Context, input string, traced []string, n int, opts ...TraceOption) (*TraceResult, error) {
	var o traceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if n <= 0 {
		n = DefaultResults
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.built {
		return nil, ErrNotBuilt
	}

	ctx, span := t.tracer.Start(t.context(ctx), "tableau.Trace", spanAttrs(t),
		trace.WithAttributes(attribute.String("trace.input", input), attribute.Int("trace.n", n)))
	defer span.End()

	want := make(map[string]struct{}, len(traced))
	for _, c := range traced {
		want[c] = struct{}{}
	}
	res := &TraceResult{Input: input, Traced: slices.Clone(traced), N: n}

	cands, err := t.traceLookup(ctx, t.gen, input, n, o.verbose)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	res.Steps = append(res.Steps, TraceStep{Candidates: listing(cands, true, want, n)})

	for i, st := range t.stages {
		fatal, err := t.traceLookup(ctx, st.Before, input, n, o.verbose)
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
		surv, err := t.traceLookup(ctx, st.After, input, n, o.verbose)
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
		exact := fatal != nil && len(fatal) <= n && surv != nil
		if exact {
			for s := range surv {
				delete(fatal, s)
			}
		}
		res.Steps = append(res.Steps, TraceStep{
			Index:      i + 1,
			Constraint: st.Constraint.Name(),
			Fatalities: listing(fatal, exact, want, n),
			Survivors:  listing(surv, true, want, n),
		})
	}
	return res, nil
}

// traceLookup returns up to n+1 reformatted outputs, or nil when tr is
// infinitely ambiguous.
func (t *Tableau) traceLookup(ctx context.Context, tr fst.Transducer, input string, n int, verbose bool) (map[string]struct{}, error) {
	inf, err := tr.IsInfinitelyAmbiguous(ctx)
	if err != nil {
		return nil, err
	}
	if inf {
		infiniteTotal.WithLabelValues("trace").Inc()
		return nil, nil
	}
	outs, err := t.lookup(ctx, tr, input, n+1, "trace")
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(outs))
	for o := range outs {
		o = symbols.StripEpsilon(o)
		if !verbose {
			o = symbols.StripAlignment(o)
		}
		out[o] = struct{}{}
	}
	return out, nil
}

func (t *Tableau) lookup(ctx context.Context, tr fst.Transducer, input string, max int, op string) (map[string]struct{}, error) {
	t.logger.Trace(ctx, "lookup", logging.Lookup(input, max), zap.String("operation", op))
	lookupsTotal.WithLabelValues(op).Inc()
	t.ins.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	return fst.Outputs(ctx, tr, input, max)
}

func listing(forms map[string]struct{}, exact bool, traced map[string]struct{}, n int) Listing {
	switch {
	case forms == nil:
		return Listing{Status: Infinite}
	case len(forms) > n:
		return Listing{Status: Exceeds}
	case !exact:
		return Listing{Status: AtMost}
	}
	var l Listing
	for _, f := range sorted(forms) {
		if _, ok := traced[symbols.Normalize(f)]; ok {
			l.Traced = append(l.Traced, f)
		} else {
			l.Untraced = append(l.Untraced, f)
		}
	}
	return l
}

func sorted(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
