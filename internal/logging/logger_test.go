package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"default", func(*Config) {}, ""},
		{"json", func(c *Config) { c.Format = "json" }, ""},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"bad output", func(c *Config) { c.Output = "file" }, "output"},
		{"negative skip", func(c *Config) { c.Caller = CallerConfig{Enabled: true, Skip: -1} }, "caller skip"},
		{"empty field", func(c *Config) { c.Fields = map[string]string{"svc": ""} }, "empty value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.WarnLevel
	cfg.Fields = map[string]string{"service": "otab"}

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.False(t, l.Enabled(zapcore.InfoLevel))
	assert.True(t, l.Enabled(zapcore.ErrorLevel))
	assert.NotNil(t, l.Underlying())

	cfg.Format = "yaml"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_WithLoggerProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.WarnLevel

	l, err := NewLogger(cfg, WithLoggerProvider(noop.NewLoggerProvider()))
	require.NoError(t, err)
	assert.False(t, l.Enabled(zapcore.InfoLevel))
	assert.True(t, l.Enabled(zapcore.WarnLevel))
	assert.NotPanics(t, func() {
		l.Warn(context.Background(), "bridged", zap.String("constraint", "MAX"))
	})

	l, err = NewLogger(cfg, WithLoggerProvider(nil))
	require.NoError(t, err)
	assert.True(t, l.Enabled(zapcore.ErrorLevel))
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithTableau(ctx, "hawaiian")
	ctx = WithStage(ctx, Stage{Index: 2, Constraint: "MAX", Precision: 5, Method: "counting"})

	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid,
	}))

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range ContextFields(ctx) {
		f.AddTo(enc)
	}
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", enc.Fields["trace_id"])
	assert.Equal(t, "hawaiian", enc.Fields["tableau"])
	assert.Equal(t, int64(2), enc.Fields["stage"])
	assert.Equal(t, "MAX", enc.Fields["constraint"])
	assert.Equal(t, int64(5), enc.Fields["precision"])
	assert.Equal(t, "counting", enc.Fields["method"])
}

func TestStage_Fields(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range (Stage{Index: 1, Constraint: "DEP"}).Fields() {
		f.AddTo(enc)
	}
	assert.Equal(t, int64(1), enc.Fields["stage"])
	assert.Equal(t, int64(0), enc.Fields["precision"])
	assert.NotContains(t, enc.Fields, "method")
}

func TestDomainFields(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	Automaton(4, 9).AddTo(enc)
	Lookup("pa", 20).AddTo(enc)
	assert.Equal(t, map[string]any{"states": int64(4), "arcs": int64(9)}, enc.Fields["automaton"])
	assert.Equal(t, map[string]any{"input": "pa", "max": int64(20)}, enc.Fields["lookup"])
}

func TestTestLogger(t *testing.T) {
	ctx := context.Background()
	tl := NewTestLogger()

	tl.Trace(ctx, "tool call", zap.String("tool", "hfst-compose"))
	for i, name := range []string{"MAX", "DEP"} {
		st := Stage{Index: i + 1, Constraint: name, Precision: 5, Method: "matching"}
		tl.Info(WithStage(ctx, st), "applying constraint", zap.Int("total", 2))
	}
	tl.Info(ctx, "applying constraint")

	tl.AssertLogged(t, TraceLevel, "tool call")
	tl.AssertLogged(t, zapcore.InfoLevel, "applying")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "applying")
	tl.AssertField(t, "applying constraint", zap.String("constraint", "DEP"))
	tl.AssertField(t, "applying", zap.Int("total", 2))
	assert.Equal(t, []string{"tool call"}, tl.Messages(TraceLevel))

	assert.Equal(t, []Stage{
		{Index: 1, Constraint: "MAX", Precision: 5, Method: "matching"},
		{Index: 2, Constraint: "DEP", Precision: 5, Method: "matching"},
	}, tl.Stages("applying constraint"))

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestLogger_SkipsDisabledLevels(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.WarnLevel
	l, err := NewLogger(cfg)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		l.Trace(context.Background(), "dropped")
		l.Debug(context.Background(), "dropped")
	})
	assert.False(t, l.Enabled(TraceLevel))
	assert.True(t, l.Enabled(zapcore.WarnLevel))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Named("tableau").With(zap.Bool("x", true)).Warn(ctx, "careful")
	tl.AssertLogged(t, zapcore.WarnLevel, "careful")
}
