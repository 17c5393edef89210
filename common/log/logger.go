// Package log defines the structured logging interface used across kassandra,
// mirroring the teacher's common/log package: a small Logger interface over
// zap, and typed tag.Tag values instead of bare key/value pairs at call sites.
package log

import (
	"go.uber.org/zap"

	"github.com/uber/kassandra/common/log/tag"
)

// Logger is the structured logging interface used throughout kassandra.
type Logger interface {
	Debug(msg string, tags ...tag.Tag)
	Info(msg string, tags ...tag.Tag)
	Warn(msg string, tags ...tag.Tag)
	Error(msg string, tags ...tag.Tag)
	With(tags ...tag.Tag) Logger
}

type zapLogger struct {
	zap *zap.Logger
}

// NewZapLogger wraps a *zap.Logger to satisfy Logger.
func NewZapLogger(z *zap.Logger) Logger {
	return &zapLogger{zap: z}
}

// NewDevelopment returns a Logger suitable for interactive/CLI use.
func NewDevelopment() Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		z = zap.NewNop()
	}
	return NewZapLogger(z)
}

// NewNoop returns a Logger that discards everything, for tests.
func NewNoop() Logger {
	return NewZapLogger(zap.NewNop())
}

func fields(tags []tag.Tag) []zap.Field {
	fs := make([]zap.Field, 0, len(tags))
	for _, t := range tags {
		fs = append(fs, t.Field())
	}
	return fs
}

func (l *zapLogger) Debug(msg string, tags ...tag.Tag) { l.zap.Debug(msg, fields(tags)...) }
func (l *zapLogger) Info(msg string, tags ...tag.Tag)  { l.zap.Info(msg, fields(tags)...) }
func (l *zapLogger) Warn(msg string, tags ...tag.Tag)  { l.zap.Warn(msg, fields(tags)...) }
func (l *zapLogger) Error(msg string, tags ...tag.Tag) { l.zap.Error(msg, fields(tags)...) }

func (l *zapLogger) With(tags ...tag.Tag) Logger {
	return &zapLogger{zap: l.zap.With(fields(tags)...)}
}
