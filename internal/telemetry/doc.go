// Package telemetry provides OpenTelemetry tracing for otab.
//
// Spans are exported over OTLP (grpc or http/protobuf) to a collector.
// Tracing is off by default; a build of a large tableau produces one span per
// constraint stage, which is the main reason to turn it on.
//
//	cfg := telemetry.NewDefaultConfig()
//	cfg.Enabled = true
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Tests use TestTelemetry, which records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	tab := tableau.New(e, g, tableau.WithTracer(tt.Tracer("test")))
//	tt.AssertSpanExists(t, "tableau.Build")
package telemetry
