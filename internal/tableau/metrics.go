package tableau

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	// buildsTotal counts Build calls.
	// Labels: result (success, error)
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "otgrammar",
			Subsystem: "tableau",
			Name:      "builds_total",
			Help:      "Total number of tableau builds",
		},
		[]string{"result"},
	)

	// stageDuration tracks how long one constraint stage takes to apply.
	// Labels: method (matching, counting)
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "otgrammar",
			Subsystem: "tableau",
			Name:      "stage_duration_seconds",
			Help:      "Duration of applying one constraint stage in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"method"},
	)

	// lookupsTotal counts automaton lookups.
	// Labels: operation (run, trace)
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "otgrammar",
			Subsystem: "tableau",
			Name:      "lookups_total",
			Help:      "Total number of automaton lookups",
		},
		[]string{"operation"},
	)

	// infiniteTotal counts snapshots skipped as infinitely ambiguous.
	// Labels: operation (trace)
	infiniteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "otgrammar",
			Subsystem: "tableau",
			Name:      "infinite_total",
			Help:      "Total number of infinitely ambiguous snapshots met during lookups",
		},
		[]string{"operation"},
	)
)

// instruments mirror the Prometheus metrics for OTLP export.
type instruments struct {
	buildDuration metric.Float64Histogram
	stageDuration metric.Float64Histogram
	lookups       metric.Int64Counter
}

func newInstruments(m metric.Meter) *instruments {
	ins := &instruments{
		buildDuration: noop.Float64Histogram{},
		stageDuration: noop.Float64Histogram{},
		lookups:       noop.Int64Counter{},
	}
	if h, err := m.Float64Histogram("otab.tableau.build.duration",
		metric.WithUnit("s"), metric.WithDescription("Duration of a tableau build")); err == nil {
		ins.buildDuration = h
	}
	if h, err := m.Float64Histogram("otab.tableau.stage.duration",
		metric.WithUnit("s"), metric.WithDescription("Duration of applying one constraint stage")); err == nil {
		ins.stageDuration = h
	}
	if c, err := m.Int64Counter("otab.tableau.lookups",
		metric.WithDescription("Number of automaton lookups")); err == nil {
		ins.lookups = c
	}
	return ins
}
