package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewContext stores a request-scoped logger in the context.
func NewContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts the request-scoped logger.
// Falls back to fallback, or to a no-op logger when fallback is nil.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// With adds fields to the context's logger and stores the result back.
func With(ctx context.Context, fallback *zap.Logger, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := FromContext(ctx, fallback).With(fields...)
	return NewContext(ctx, l), l
}
