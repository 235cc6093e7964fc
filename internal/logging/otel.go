package logging

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// bridgeName is the instrumentation scope of bridged log records.
const bridgeName = "github.com/fyrsmithlabs/otgrammar"

// Option configures NewLogger.
type Option func(*loggerOptions)

type loggerOptions struct {
	provider log.LoggerProvider
}

// WithLoggerProvider also sends entries to an OpenTelemetry log provider
// through the zap bridge. A nil provider is ignored.
func WithLoggerProvider(lp log.LoggerProvider) Option {
	return func(o *loggerOptions) { o.provider = lp }
}

// withBridge tees core into the provider, at no lower a level than the
// console output.
func withBridge(core zapcore.Core, lp log.LoggerProvider, level zapcore.LevelEnabler) zapcore.Core {
	if lp == nil {
		return core
	}
	var bridge zapcore.Core = otelzap.NewCore(bridgeName, otelzap.WithLoggerProvider(lp))
	if leveled, err := zapcore.NewIncreaseLevelCore(bridge, level); err == nil {
		bridge = leveled
	}
	return zapcore.NewTee(core, bridge)
}
