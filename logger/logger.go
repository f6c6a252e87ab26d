// Package logger is the logging facade of av1bridge.
//
// Everything is routed to the go-belt logger carried by the context, so the
// host application decides where (and whether) the bridge logs.
package logger

import (
	"context"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// Logger is just a type-alias for logger.Logger for convenience.
type Logger = logger.Logger

func SetDefault(defaultLogger func() Logger) {
	logger.Default = defaultLogger
}

// CtxWithLogger attaches l to ctx; every call below logs through it.
func CtxWithLogger(ctx context.Context, l Logger) context.Context {
	return logger.CtxWithLogger(ctx, l)
}

// CtxWithField returns a context whose logger carries the structured field.
func CtxWithField(ctx context.Context, key string, value any) context.Context {
	return belt.WithField(ctx, key, value)
}

// Debugf is just a shorthand for Logf(ctx, logger.LevelDebug, ...)
func Debugf(ctx context.Context, format string, args ...any) {
	logger.Debugf(ctx, format, args...)
}

// Infof is just a shorthand for Logf(ctx, logger.LevelInfo, ...)
func Infof(ctx context.Context, format string, args ...any) {
	logger.Infof(ctx, format, args...)
}

// Warnf is just a shorthand for Logf(ctx, logger.LevelWarn, ...)
func Warnf(ctx context.Context, format string, args ...any) {
	logger.Warnf(ctx, format, args...)
}

// Errorf is just a shorthand for Logf(ctx, logger.LevelError, ...)
func Errorf(ctx context.Context, format string, args ...any) {
	logger.Errorf(ctx, format, args...)
}

// Logf logs an unstructured message with all the contextual fields.
func Logf(ctx context.Context, level logger.Level, format string, args ...any) {
	logger.Logf(ctx, level, format, args...)
}
