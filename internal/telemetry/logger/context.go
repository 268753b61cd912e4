package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
)

// WithRequest stores an HTTP request ID in ctx together with l scoped to
// that ID. A nil l stores only the ID.
func WithRequest(ctx context.Context, requestID string, l *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	if l != nil {
		ctx = context.WithValue(ctx, loggerKey, l.With("request_id", requestID))
	}
	return ctx
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext returns the request-scoped logger stored by WithRequest,
// or fallback when there is none.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return fallback
}
