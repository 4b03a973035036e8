// Package logger provides structured logging using log/slog.
// It sets up a JSON handler with service-level context and carries the
// active chart request (series key + request ID) through context.Context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const (
	requestKey ctxKey = "request_key"
	requestID  ctxKey = "req_id"
)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values map to
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequest stores the series key and fetch request ID of an in-flight
// load in the context.
func WithRequest(ctx context.Context, key string, id uint64) context.Context {
	ctx = context.WithValue(ctx, requestKey, key)
	return context.WithValue(ctx, requestID, id)
}

// RequestKey extracts the series key from context. Returns "" if not set.
func RequestKey(ctx context.Context) string {
	if v, ok := ctx.Value(requestKey).(string); ok {
		return v
	}
	return ""
}

// RequestID extracts the fetch request ID from context.
func RequestID(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(requestID).(uint64)
	return v, ok
}

// RequestAttrs returns slog attributes for the request carried by ctx.
// Usage: slog.Info("msg", logger.RequestAttrs(ctx)...)
func RequestAttrs(ctx context.Context) []any {
	key := RequestKey(ctx)
	if key == "" {
		return nil
	}
	attrs := []any{slog.String("key", key)}
	if id, ok := RequestID(ctx); ok {
		attrs = append(attrs, slog.Uint64("req_id", id))
	}
	return attrs
}
