package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapOTELCore returns a core exporting records at or above level through
// the provider. A nil provider yields a no-op core.
func NewZapOTELCore(lp *sdklog.LoggerProvider, name string, level zapcore.Level) zapcore.Core {
	if lp == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp))
	return &levelFilterCore{Core: core, minLevel: level}
}

// Bridge tees the logger's output into the OTEL provider.
// The logger is returned unchanged when OTEL logs are disabled.
func Bridge(logger *zap.Logger, p *Providers, name string, level zapcore.Level) *zap.Logger {
	if p == nil || p.logs == nil {
		return logger
	}
	otelCore := NewZapOTELCore(p.logs, name, level)
	return logger.WithOptions(zap.WrapCore(func(base zapcore.Core) zapcore.Core {
		return zapcore.NewTee(base, otelCore)
	}))
}

// otelzap has no minimum level of its own
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
