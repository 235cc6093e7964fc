package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry, down to TraceLevel, for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{Logger: &Logger{zap: zap.New(core)}, observed: observed}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry { return t.observed.All() }

// FilterMessage returns the entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset drops the recorded entries.
func (t *TestLogger) Reset() { t.observed.TakeAll() }

func (t *TestLogger) at(level zapcore.Level, msg string) *observer.ObservedLogs {
	return t.observed.FilterLevelExact(level).FilterMessageSnippet(msg)
}

// AssertLogged fails tb unless an entry at level has a message containing
// msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if t.at(level, msg).Len() == 0 {
		tb.Errorf("no %v entry containing %q in %d entries", level, msg, t.observed.Len())
	}
}

// AssertNotLogged fails tb if an entry at level has a message containing
// msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := t.at(level, msg).Len(); n > 0 {
		tb.Errorf("%d unexpected %v entries containing %q", n, level, msg)
	}
}

// AssertField fails tb unless an entry whose message contains msg carries
// field.
func (t *TestLogger) AssertField(tb testing.TB, msg string, field zap.Field) {
	tb.Helper()
	if t.FilterMessage(msg).FilterField(field).Len() == 0 {
		tb.Errorf("field %s not found on %q entries", field.Key, msg)
	}
}

// Stages returns, in logging order, the stages of the entries whose message
// contains msg. Entries without a stage are skipped.
func (t *TestLogger) Stages(msg string) []Stage {
	var out []Stage
	for _, e := range t.FilterMessage(msg).All() {
		m := e.ContextMap()
		idx, ok := m["stage"].(int64)
		if !ok {
			continue
		}
		st := Stage{Index: int(idx)}
		st.Constraint, _ = m["constraint"].(string)
		if n, ok := m["precision"].(int64); ok {
			st.Precision = int(n)
		}
		st.Method, _ = m["method"].(string)
		out = append(out, st)
	}
	return out
}

// Messages returns the messages recorded at level, in order.
func (t *TestLogger) Messages(level zapcore.Level) []string {
	var out []string
	for _, e := range t.observed.FilterLevelExact(level).All() {
		out = append(out, e.Message)
	}
	return out
}
