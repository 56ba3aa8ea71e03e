// Package logging builds the zap logger used throughout archiplane and
// provides context helpers for carrying a logger and attaching fields to
// it.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const loggerKey ctxKey = iota

// New builds the root logger for the process: development encoding (console,
// colored level, caller) outside production, JSON in production.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// WithContext returns a context carrying logger as the active logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or zap.L() if none was set.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

// WithFields returns a context whose logger has the given fields appended.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return WithContext(ctx, FromContext(ctx).With(fields...))
}
