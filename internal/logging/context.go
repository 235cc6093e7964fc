package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context: the active span and
// the tableau and stage being worked on.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 7)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if name := TableauFromContext(ctx); name != "" {
		fields = append(fields, zap.String("tableau", name))
	}

	if st, ok := StageFromContext(ctx); ok {
		fields = append(fields, st.Fields()...)
	}

	return fields
}

type tableauCtxKey struct{}
type stageCtxKey struct{}

// Stage identifies one constraint application within a tableau build.
type Stage struct {
	Index      int
	Constraint string
	Precision  int
	Method     string
}

// Fields renders the stage as log fields. Method is omitted when empty.
func (s Stage) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("stage", s.Index),
		zap.String("constraint", s.Constraint),
		zap.Int("precision", s.Precision),
	}
	if s.Method != "" {
		fields = append(fields, zap.String("method", s.Method))
	}
	return fields
}

// WithTableau adds the tableau name to context.
func WithTableau(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, tableauCtxKey{}, name)
}

// TableauFromContext returns the tableau name, or "".
func TableauFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tableauCtxKey{}).(string)
	return s
}

// WithStage adds the current stage to context. Stages count from 1; stage 0
// is the generator.
func WithStage(ctx context.Context, st Stage) context.Context {
	return context.WithValue(ctx, stageCtxKey{}, st)
}

// StageFromContext returns the current stage.
func StageFromContext(ctx context.Context) (Stage, bool) {
	s, ok := ctx.Value(stageCtxKey{}).(Stage)
	return s, ok
}

type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return Nop()
}
