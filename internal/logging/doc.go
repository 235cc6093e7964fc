// Package logging provides structured logging with OpenTelemetry trace
// correlation.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, span_id, tableau, stage,
//     constraint, precision, method)
//   - Dict fields for automaton sizes and lookups
//   - Console or JSON encoding, written to stderr by default
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithTableau(ctx, "hawaiian")
//	ctx = logging.WithStage(ctx, logging.Stage{Index: 2, Constraint: "MAX", Precision: 5, Method: "matching"})
//	logger.Info(ctx, "applying constraint", logging.Automaton(12, 40))
//
// Components that have no context of their own, such as the HFST engine,
// take the *zap.Logger returned by Underlying.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", zap.String("key", "value"))
//	stages := tl.Stages("applying constraint")
package logging
