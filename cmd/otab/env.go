package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/config"
	"github.com/fyrsmithlabs/otgrammar/internal/fst/hfst"
	"github.com/fyrsmithlabs/otgrammar/internal/grammar"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/report"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
	"github.com/fyrsmithlabs/otgrammar/internal/telemetry"
)

// environment carries what every subcommand needs: configuration, logging
// and telemetry.
type environment struct {
	cfg *config.Config
	log *logging.Logger
	tel *telemetry.Telemetry
}

// setup loads configuration, applies the root flags and starts logging and
// telemetry.
func setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if metricsFile != "" {
		cfg.Metrics.Textfile = metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tel, err := telemetry.New(cmd.Context(), telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	var lopts []logging.Option
	if cfg.Logging.OTel {
		lopts = append(lopts, logging.WithLoggerProvider(tel.LoggerProvider()))
	}
	log, err := logging.NewLogger(loggingConfig(cfg), lopts...)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if derr := tel.Degraded(); derr != nil {
		log.Warn(cmd.Context(), "telemetry degraded, continuing without tracing", zap.Error(derr))
	}
	return &environment{cfg: cfg, log: log, tel: tel}, nil
}

func loggingConfig(cfg *config.Config) *logging.Config {
	lc := logging.NewDefaultConfig()
	// Validate has already vetted the level name.
	lc.Level, _ = logging.LevelFromString(cfg.Logging.Level)
	lc.Format = cfg.Logging.Format
	return lc
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.Insecure = cfg.Telemetry.Insecure
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = version
	tc.Sampling.Rate = cfg.Telemetry.SamplingRate
	tc.Metrics.Enabled = cfg.Telemetry.Metrics
	tc.Metrics.ExportInterval = cfg.Telemetry.MetricsInterval.Duration()
	tc.Shutdown.Timeout = cfg.Telemetry.ShutdownTimeout.Duration()
	return tc
}

// shutdown flushes spans, writes the metrics textfile and syncs the log.
func (e *environment) shutdown(ctx context.Context) error {
	var errs []error

	if err := e.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	if path := e.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		} else {
			e.log.Debug(ctx, "metrics written", zap.String("path", path))
		}
	}

	_ = e.log.Sync()
	return errors.Join(errs...)
}

// engine starts an HFST engine with its own scratch directory.
func (e *environment) engine() (*hfst.Engine, error) {
	return hfst.New(
		hfst.WithBinDir(e.cfg.Engine.BinDir),
		hfst.WithWorkDir(e.cfg.Engine.WorkDir),
		hfst.WithLogger(e.log.Underlying().Named("hfst")),
	)
}

func (e *environment) tableauOptions(extra ...tableau.Option) []tableau.Option {
	return append([]tableau.Option{
		tableau.WithLogger(e.log),
		tableau.WithTracer(e.tel.Tracer(tableau.InstrumentationName)),
		tableau.WithMeter(e.tel.Meter(tableau.InstrumentationName)),
	}, extra...)
}

func (e *environment) printer(w io.Writer, extra ...report.Option) *report.Printer {
	return report.New(w, append([]report.Option{report.WithStyle(styled)}, extra...)...)
}

// results resolves a -n flag value against the configured default.
func (e *environment) results(n int) int {
	if n > 0 {
		return n
	}
	return e.cfg.Tableau.Results
}

// buildGrammar compiles the grammar at path and builds its tableau. method
// overrides the grammar's penalization method when set; a grammar without
// one gets the configured default.
func (e *environment) buildGrammar(ctx context.Context, eng *hfst.Engine, path, method string) (*tableau.Tableau, error) {
	g, err := grammar.Load(path)
	if err != nil {
		return nil, err
	}
	if g.Method == "" {
		g.Method = e.cfg.Tableau.Method
	}
	if method != "" {
		if _, err := penalty.ParseMethod(method); err != nil {
			return nil, err
		}
		g.Method = method
	}
	if g.Name == "" {
		g.Name = baseName(path)
	}

	c, err := grammar.Compile(g, grammar.WithLogger(e.log.Underlying().Named("grammar")))
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	t, err := c.Tableau(ctx, eng, e.tableauOptions()...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := t.Build(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}
	e.log.Info(ctx, "tableau built",
		zap.String("grammar", path),
		zap.String("method", string(t.Method())),
		zap.Int("constraints", len(t.Constraints())),
		zap.Duration("duration", time.Since(start)))
	return t, nil
}

// openTableau returns a built tableau from a grammar file, which is built in
// memory, or from a saved .tableau/.hfst pair named by either file or by
// their common base.
func (e *environment) openTableau(ctx context.Context, eng *hfst.Engine, path string) (*tableau.Tableau, error) {
	if _, err := grammar.FormatOf(path); err == nil {
		return e.buildGrammar(ctx, eng, path, "")
	}
	base := tableauBase(path)
	return tableau.Load(ctx, eng, base+tableau.TableauExt, base+tableau.HFSTExt,
		e.tableauOptions(tableau.WithName(filepath.Base(base)))...)
}

// tableauBase strips a .tableau or .hfst extension.
func tableauBase(path string) string {
	switch ext := filepath.Ext(path); ext {
	case tableau.TableauExt, tableau.HFSTExt:
		return strings.TrimSuffix(path, ext)
	}
	return path
}

// baseName is the file name without directory or extension.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// outputBase picks where build writes: the -o flag, or the grammar path
// without its extension.
func outputBase(grammarPath, output string) string {
	if output != "" {
		return tableauBase(output)
	}
	return strings.TrimSuffix(grammarPath, filepath.Ext(grammarPath))
}
