// internal/common/logger/logger.go
package logger

import (
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the field-map logging interface passed through the pipeline.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	With(fields map[string]interface{}) Logger
}

// parseLevel falls back to info for anything zap does not recognise.
func parseLevel(levelStr string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func New(levelStr, format string) *zap.Logger {
	return NewWithOutput(levelStr, format, "")
}

// NewWithOutput builds the process logger. output is "stdout", "stderr"
// or a file path; an unusable path degrades to stderr.
func NewWithOutput(levelStr, format, output string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(levelStr))
	if output != "" {
		cfg.OutputPaths = []string{output}
	}

	if l, err := cfg.Build(); err == nil {
		return l
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("log output unavailable, using stderr", zap.String("output", output))
	return l
}

type fieldLogger struct {
	z *zap.Logger
}

func (f *fieldLogger) Debug(msg string, fields map[string]interface{}) {
	f.z.Debug(msg, toZap(fields)...)
}

func (f *fieldLogger) Info(msg string, fields map[string]interface{}) {
	f.z.Info(msg, toZap(fields)...)
}

func (f *fieldLogger) Warn(msg string, fields map[string]interface{}) {
	f.z.Warn(msg, toZap(fields)...)
}

func (f *fieldLogger) Error(msg string, fields map[string]interface{}) {
	f.z.Error(msg, toZap(fields)...)
}

func (f *fieldLogger) WithFields(fields map[string]interface{}) Logger {
	return &fieldLogger{z: f.z.With(toZap(fields)...)}
}

func (f *fieldLogger) WithError(err error) Logger {
	return &fieldLogger{z: f.z.With(zap.Error(err))}
}

func (f *fieldLogger) With(fields map[string]interface{}) Logger {
	return f.WithFields(fields)
}

// toZap emits fields in key order so console lines stay stable between runs.
func toZap(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case string:
			out = append(out, zap.String(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

func NewStructured(levelStr, format string) Logger {
	return &fieldLogger{z: New(levelStr, format)}
}

func NewZapAdapter(l *zap.Logger) Logger {
	return &fieldLogger{z: l}
}

func NewTestLogger(t testing.TB) Logger {
	return &fieldLogger{z: zaptest.NewLogger(t)}
}

func NewNoOpLogger() Logger {
	return &fieldLogger{z: zap.NewNop()}
}
