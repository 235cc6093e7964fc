package tableau

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/fst/fsttest"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
	"github.com/fyrsmithlabs/otgrammar/internal/telemetry"
)

type fixture struct {
	ctx context.Context
	e   *fsttest.Engine
	b   *constraint.Builder
	tab *Tableau
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	e := fsttest.NewEngine()
	g, err := e.Compile(ctx, regex.Text("GEN"))
	require.NoError(t, err)

	b := constraint.NewBuilder(symbols.Default())
	onset, err := b.Markedness(constraint.Phonemes("p"), constraint.WithName("*P"))
	require.NoError(t, err)
	maxIO, err := b.Maximality(constraint.Pattern{}, constraint.WithName("MAX"), constraint.WithPrecision(2))
	require.NoError(t, err)

	tab := New(e, g, opts...)
	tab.AddConstraint(onset)
	tab.AddConstraints(maxIO)
	return &fixture{ctx: ctx, e: e, b: b, tab: tab}
}

func steps(tr fst.Transducer) []string { return tr.(*fsttest.Transducer).Steps() }

func id(tr fst.Transducer) int { return tr.(*fsttest.Transducer).ID }

func TestBuild_Matching(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tab.Build(f.ctx))
	defer f.tab.Close()

	assert.True(t, f.tab.Built())
	assert.True(t, f.tab.gen.(*fsttest.Transducer).Optimized())
	assert.Equal(t, []string{"compile GEN"}, steps(f.tab.gen))

	stages := f.tab.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, "*P", stages[0].Constraint.Name())

	before := steps(stages[0].Before)
	require.Len(t, before, 3)
	assert.Equal(t, "compose {compile "+regex.Render(stages[0].Constraint.Recipe())+"}", before[1])
	assert.Equal(t, "minimize", before[2])
	assert.True(t, stages[0].Before.(*fsttest.Transducer).Optimized())

	after := steps(stages[0].After)
	assert.Equal(t, before, after[:3])
	assert.True(t, strings.HasPrefix(after[3], "subtract {"))
	assert.Equal(t, "minimize", after[len(after)-1])

	final := f.tab.final.(*fsttest.Transducer)
	assert.Equal(t, 2, final.Count("subtract"))
	assert.Equal(t, 2, final.Count("compose {compile [%*] -> 0}"))
	last := final.Steps()[len(final.Steps())-2:]
	assert.Equal(t, []string{"compose {compile " + regex.Render(f.tab.FinishRecipe()) + "}", "minimize"}, last)
	assert.True(t, final.Optimized())

	// generator, two snapshot pairs and the final automaton
	assert.Equal(t, 6, f.e.Live())
}

func TestBuild_Counting(t *testing.T) {
	f := newFixture(t, WithMethod(penalty.Counting))
	require.NoError(t, f.tab.Build(f.ctx))

	final := f.tab.final.(*fsttest.Transducer)
	assert.Zero(t, final.Count("subtract"))
	// precision 5 for *P and 2 for MAX, each counted down to zero
	assert.Equal(t, 6+3, final.Count("lenient"))
}

func TestFinishRecipe(t *testing.T) {
	tab := New(fsttest.NewEngine(), nil)
	want := `[ [ [%>] [ \[%<] ]+ [%<] ] | [ [%#] [%.] ] | [ [%.] [%#] ] | [%,] ] -> 0 .o. [%-] -> 0`
	assert.Equal(t, want, regex.Render(tab.FinishRecipe()))
}

func TestBuild_Twice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tab.Build(f.ctx))
	assert.ErrorIs(t, f.tab.Build(f.ctx), ErrAlreadyBuilt)
	assert.Len(t, f.tab.Stages(), 2)
}

func TestBuild_Error(t *testing.T) {
	f := newFixture(t)
	recipe := regex.Render(f.tab.Constraints()[1].Recipe())
	f.e.CompileErr = func(r string) error {
		if r == recipe {
			return assert.AnError
		}
		return nil
	}
	failures := testutil.ToFloat64(buildsTotal.WithLabelValues("error"))

	err := f.tab.Build(f.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, fst.ErrEngine)
	assert.Contains(t, err.Error(), "constraint MAX")
	assert.False(t, f.tab.Built())
	assert.Equal(t, 1, f.e.Live(), "only the generator survives a failed build")
	assert.Equal(t, failures+1, testutil.ToFloat64(buildsTotal.WithLabelValues("error")))
}

func TestBuild_InfiniteSnapshotsStayUnoptimized(t *testing.T) {
	f := newFixture(t)
	f.e.InfiniteFunc = func(tr *fsttest.Transducer) bool { return tr.Count("subtract") == 0 }
	require.NoError(t, f.tab.Build(f.ctx))

	st := f.tab.Stages()
	assert.False(t, f.tab.gen.(*fsttest.Transducer).Optimized())
	assert.False(t, st[0].Before.(*fsttest.Transducer).Optimized())
	assert.True(t, st[0].After.(*fsttest.Transducer).Optimized())
}

func TestBuild_Telemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	tl := logging.NewTestLogger()
	f := newFixture(t, WithTracer(tt.Tracer("test")), WithLogger(tl.Logger), WithName("hawaiian"))
	require.NoError(t, f.tab.Build(f.ctx))

	tt.AssertSpanExists(t, "tableau.Build")
	tt.AssertSpanAttribute(t, "tableau.Build", "tableau.constraints", int64(2))
	stages := tt.SpansByName("tableau.Stage")
	require.Len(t, stages, 2)
	tt.AssertSpanAttribute(t, "tableau.Stage", "constraint.name", "*P")

	tl.AssertLogged(t, zapcore.InfoLevel, "applying constraint")
	tl.AssertField(t, "applying constraint", zap.String("constraint", "MAX"))
	tl.AssertField(t, "build complete", zap.String("tableau", "hawaiian"))
	tl.AssertLogged(t, zapcore.DebugLevel, "stage applied")
	assert.Equal(t, []logging.Stage{
		{Index: 1, Constraint: "*P", Precision: constraint.DefaultPrecision, Method: "matching"},
		{Index: 2, Constraint: "MAX", Precision: 2, Method: "matching"},
	}, tl.Stages("applying constraint"))
}

func TestBuild_OTelMetrics(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	f := newFixture(t, WithMeter(tt.Meter("test")))
	require.NoError(t, f.tab.Build(f.ctx))
	defer f.tab.Close()

	m, ok := tt.Metric(t, "otab.tableau.build.duration")
	require.True(t, ok)
	build := m.Data.(metricdata.Histogram[float64])
	require.Len(t, build.DataPoints, 1)
	assert.Equal(t, uint64(1), build.DataPoints[0].Count)
	result, _ := build.DataPoints[0].Attributes.Value("result")
	assert.Equal(t, "success", result.AsString())

	m, ok = tt.Metric(t, "otab.tableau.stage.duration")
	require.True(t, ok)
	assert.Equal(t, uint64(2), m.Data.(metricdata.Histogram[float64]).DataPoints[0].Count)

	f.e.Results["pa"] = []string{"pa"}
	_, err := f.tab.Run(f.ctx, "pa", "", 10)
	require.NoError(t, err)
	m, ok = tt.Metric(t, "otab.tableau.lookups")
	require.True(t, ok)
	lookups := m.Data.(metricdata.Sum[int64])
	require.Len(t, lookups.DataPoints, 1)
	assert.Equal(t, int64(1), lookups.DataPoints[0].Value)
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.tab.Run(f.ctx, "pa", "", 10)
	require.ErrorIs(t, err, ErrNotBuilt)
	require.NoError(t, f.tab.Build(f.ctx))

	f.e.Results["pa"] = []string{"pa", "ba"}

	t.Run("faithful winner by default", func(t *testing.T) {
		res, err := f.tab.Run(f.ctx, "pa", "", 10)
		require.NoError(t, err)
		assert.True(t, res.Wins)
		assert.False(t, res.TooMany)
		assert.Equal(t, "pa", res.Desired)
		assert.Equal(t, []string{"ba"}, res.Winners)
		assert.Contains(t, f.e.Log(), "#"+strconv.Itoa(id(f.tab.final))+" lookup pa 20")
	})

	t.Run("loses", func(t *testing.T) {
		res, err := f.tab.Run(f.ctx, "pa", "fa", 10)
		require.NoError(t, err)
		assert.False(t, res.Wins)
		assert.Equal(t, []string{"ba", "pa"}, res.Winners)
	})

	t.Run("too many", func(t *testing.T) {
		res, err := f.tab.Run(f.ctx, "pa", "", 1)
		require.NoError(t, err)
		assert.True(t, res.TooMany)
		assert.False(t, res.Wins)
		assert.Len(t, res.Winners, 1)
	})

	t.Run("regex collapses matches", func(t *testing.T) {
		res, err := f.tab.Run(f.ctx, "pa", "[pb]a", 10, AsRegex())
		require.NoError(t, err)
		assert.True(t, res.Wins)
		assert.Empty(t, res.Winners)

		res, err = f.tab.Run(f.ctx, "pa", "p", 10, AsRegex())
		require.NoError(t, err)
		assert.False(t, res.Wins, "regex must match a whole winner")
	})

	t.Run("bad regex", func(t *testing.T) {
		_, err := f.tab.Run(f.ctx, "pa", "(", 10, AsRegex())
		assert.Error(t, err)
	})
}

// traceFixture builds a one-constraint tableau whose snapshots answer with
// the given aligned outputs.
func traceFixture(t *testing.T, gen, before, after []string) *fixture {
	t.Helper()
	f := newFixture(t)
	f.tab.constraints = f.tab.constraints[:1]
	require.NoError(t, f.tab.Build(f.ctx))
	st := f.tab.Stages()[0]
	byID := map[int][]string{
		id(f.tab.gen):   gen,
		id(st.Before):   before,
		id(st.After):    after,
		id(f.tab.final): {"pa"},
	}
	f.e.LookupFunc = func(tr *fsttest.Transducer, _ string) []string { return byID[tr.ID] }
	return f
}

func TestTrace(t *testing.T) {
	f := traceFixture(t,
		[]string{">p<p>a<a", ">p<b>a<a"},
		[]string{">p<p>a<a", ">p<b*>a<a"},
		[]string{">p<p>a<a"},
	)

	res, err := f.tab.Trace(f.ctx, "pa", []string{"pa"}, 10)
	require.NoError(t, err)
	require.Len(t, res.Steps, 2)

	c := res.Steps[0].Candidates
	assert.Equal(t, Exact, c.Status)
	assert.Equal(t, []string{"pa"}, c.Traced)
	assert.Equal(t, []string{"ba"}, c.Untraced)

	s := res.Steps[1]
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, "*P", s.Constraint)
	assert.Equal(t, Exact, s.Fatalities.Status)
	assert.Empty(t, s.Fatalities.Traced)
	assert.Equal(t, []string{"b*a"}, s.Fatalities.Untraced)
	assert.Equal(t, []string{"pa"}, s.Survivors.Traced)
	assert.Equal(t, 1, s.Survivors.Count())

	assert.Contains(t, f.e.Log(), "#"+strconv.Itoa(id(f.tab.gen))+" lookup pa 11")
}

func TestTrace_Verbose(t *testing.T) {
	f := traceFixture(t,
		[]string{"#.>p<p>a<a@_EPSILON_SYMBOL_@.#"},
		nil, nil,
	)
	res, err := f.tab.Trace(f.ctx, "pa", []string{"pa"}, 10, Verbose())
	require.NoError(t, err)
	assert.Equal(t, []string{"#.>p<p>a<a.#"}, res.Steps[0].Candidates.Traced)
	assert.Equal(t, 0, res.Steps[1].Survivors.Count())
}

func TestTrace_Bounds(t *testing.T) {
	f := traceFixture(t,
		[]string{"pa", "ba", "ma"},
		[]string{"pa", "ba*"},
		[]string{"pa"},
	)

	res, err := f.tab.Trace(f.ctx, "pa", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, Exceeds, res.Steps[0].Candidates.Status)
	assert.Equal(t, Exceeds, res.Steps[1].Fatalities.Status)
	assert.Equal(t, Exact, res.Steps[1].Survivors.Status)
}

func TestTrace_Infinite(t *testing.T) {
	f := traceFixture(t, nil, []string{"pa"}, nil)
	st := f.tab.Stages()[0]
	f.e.InfiniteFunc = func(tr *fsttest.Transducer) bool {
		return tr.ID == id(f.tab.gen) || tr.ID == id(st.After)
	}

	res, err := f.tab.Trace(f.ctx, "pa", []string{"pa"}, 10)
	require.NoError(t, err)
	assert.Equal(t, Infinite, res.Steps[0].Candidates.Status)
	assert.Equal(t, AtMost, res.Steps[1].Fatalities.Status, "survivors unknown, so fatalities are not exact")
	assert.Equal(t, Infinite, res.Steps[1].Survivors.Status)
	assert.NotContains(t, f.e.Log(), "#"+strconv.Itoa(id(f.tab.gen))+" lookup pa 11")
}

func TestTrace_NotBuilt(t *testing.T) {
	f := newFixture(t)
	_, err := f.tab.Trace(f.ctx, "pa", nil, 0)
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestSaveLoad(t *testing.T) {
	f := newFixture(t, WithMethod(penalty.Counting))
	f.e.Results["pa"] = []string{"pa", "ba"}
	require.NoError(t, f.tab.Build(f.ctx))

	base := filepath.Join(t.TempDir(), "onset")
	require.NoError(t, f.tab.Save(f.ctx, base))

	text, err := os.ReadFile(base + TableauExt)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(text)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "counting", lines[0])
	assert.Equal(t, f.tab.Constraints()[0].String(), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "MAX\t2\t"))

	loaded, err := Load(f.ctx, f.e, base+TableauExt, base+HFSTExt, WithName("reloaded"))
	require.NoError(t, err)
	defer loaded.Close()

	assert.True(t, loaded.Built())
	assert.Equal(t, penalty.Counting, loaded.Method())
	assert.Equal(t, "reloaded", loaded.Name())
	require.Len(t, loaded.Constraints(), 2)
	for i, c := range loaded.Constraints() {
		orig := f.tab.Constraints()[i]
		assert.Equal(t, orig.Name(), c.Name())
		assert.Equal(t, orig.Precision(), c.Precision())
		assert.Equal(t, regex.Render(orig.Recipe()), regex.Render(c.Recipe()))
	}
	assert.Equal(t, steps(f.tab.final), steps(loaded.final))
	assert.True(t, loaded.final.(*fsttest.Transducer).Optimized())

	want, err := f.tab.Run(f.ctx, "pa", "", 5)
	require.NoError(t, err)
	got, err := loaded.Run(f.ctx, "pa", "", 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_NotBuilt(t *testing.T) {
	f := newFixture(t)
	err := f.tab.Save(f.ctx, filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestLoad_StageMismatch(t *testing.T) {
	ctx := context.Background()
	e := fsttest.NewEngine()
	dir := t.TempDir()

	var ts []fst.Transducer
	for range 3 {
		tr, err := e.Compile(ctx, regex.Text("X"))
		require.NoError(t, err)
		ts = append(ts, tr)
	}
	hf, err := os.Create(filepath.Join(dir, "t.hfst"))
	require.NoError(t, err)
	require.NoError(t, e.WriteAll(ctx, hf, ts))
	require.NoError(t, hf.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.tableau"), []byte("matching\nONE\t5\t[%a]\n"), 0o644))

	_, err = Load(ctx, e, filepath.Join(dir, "t.tableau"), filepath.Join(dir, "t.hfst"))
	assert.ErrorIs(t, err, ErrStageMismatch)
	assert.Equal(t, 3, e.Live(), "read automata are released")
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"bad method", "ranking\n"},
		{"missing fields", "matching\nONE\t5\n"},
		{"bad precision", "matching\nONE\tfive\t[%a]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(context.Background(), fsttest.NewEngine(), strings.NewReader(tt.text), strings.NewReader("[]"))
			assert.ErrorIs(t, err, ErrMalformedTableau)
		})
	}
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	_, err := f.tab.Inspect(f.ctx)
	assert.ErrorIs(t, err, ErrNotBuilt)

	require.NoError(t, f.tab.Build(f.ctx))
	snaps, err := f.tab.Inspect(f.ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 6)

	kinds := make([]string, len(snaps))
	for i, s := range snaps {
		assert.Equal(t, i, s.Slot)
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{"generator", "before", "after", "before", "after", "final"}, kinds)
	assert.Equal(t, "MAX", snaps[3].Constraint)
	assert.Equal(t, 2, snaps[4].Stage)
	assert.Equal(t, 3, snaps[5].Stage)
	assert.Equal(t, fst.Size{States: 2, Arcs: 1}, snaps[0].Size)
	assert.False(t, snaps[0].Infinite)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tab.Build(f.ctx))
	require.NoError(t, f.tab.Close())

	assert.Zero(t, f.e.Live())
	assert.False(t, f.tab.Built())
	_, err := f.tab.Run(f.ctx, "pa", "", 1)
	assert.ErrorIs(t, err, ErrNotBuilt)
}
