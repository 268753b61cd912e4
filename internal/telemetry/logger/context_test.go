package logger

import (
	"context"
	"testing"
)

func TestWithRequest(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	ctx := WithRequest(context.Background(), "req-42", l.Slog())

	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("RequestIDFromContext = %q, want req-42", got)
	}
	FromContext(ctx, nil).Info("handled")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", entry["request_id"])
	}
}

func TestFromContext_Fallback(t *testing.T) {
	l, _ := newJSONLogger(t, "info")
	if FromContext(context.Background(), l.Slog()) != l.Slog() {
		t.Error("empty context should return the fallback")
	}

	ctx := WithRequest(context.Background(), "req-1", nil)
	if RequestIDFromContext(ctx) != "req-1" {
		t.Error("request ID not stored without logger")
	}
	if FromContext(ctx, l.Slog()) != l.Slog() {
		t.Error("context without logger should return the fallback")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should carry no request ID")
	}
}
