// Package mlog provides structured logging and correlation-id propagation.
package mlog

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the common interface for log implementations used across the core.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)

	WithFields(fields ...Field) Logger

	Sync() error
}

// Field is a structured log attribute; an alias over zap's field type so
// callers never import zap directly.
type Field = zap.Field

// String, Int, Int64, Bool, Err, Any mirror zap's field constructors so call sites
// never need to import zap.
var (
	String = zap.String
	Int    = zap.Int
	Int64  = zap.Int64
	Bool   = zap.Bool
	Err    = zap.Error
	Any    = zap.Any
)

type zapLogger struct {
	l *zap.Logger
}

// New builds a Logger backed by zap. level is one of
// "debug", "info", "warn", "error" (case-insensitive); unrecognised values
// default to "info".
func New(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &zapLogger{l: l}, nil
}

func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }

func (z *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{l: z.l.With(fields...)}
}

func (z *zapLogger) Sync() error { return z.l.Sync() }

// noneLogger is returned when no logger has been placed in the context; it
// discards everything, matching the "field omitted if absent" contract
// rather than fabricating output.
type noneLogger struct{}

func (noneLogger) Info(string, ...Field)          {}
func (noneLogger) Warn(string, ...Field)          {}
func (noneLogger) Error(string, ...Field)         {}
func (noneLogger) Debug(string, ...Field)         {}
func (n noneLogger) WithFields(...Field) Logger   { return n }
func (noneLogger) Sync() error                    { return nil }

type loggerContextKey struct{}

// ContextWithLogger returns a context carrying logger, retrievable with
// FromContext.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext extracts the Logger placed by ContextWithLogger, or a no-op
// logger if none was set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return l
	}

	return noneLogger{}
}

type correlationIDContextKey struct{}

// ContextWithCorrelationID attaches a correlation id to ctx and returns a
// context whose logger (if any) is annotated with it. The field is added
// once, here, via WithFields on the logger already in ctx; a context without
// a correlation id never gets the field.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, correlationIDContextKey{}, id)

	if l := FromContext(ctx); l != nil {
		ctx = ContextWithLogger(ctx, l.WithFields(String("correlation_id", id)))
	}

	return ctx
}

// CorrelationIDFromContext returns the correlation id carried by ctx, if any.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDContextKey{}).(string)
	return id, ok
}
