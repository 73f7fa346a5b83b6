// Package logging configures the process-wide structured logger.
//
// The logger is built once in the root command from LOG_LEVEL and
// LOG_FORMAT, tagged with a service attribute, and handed down through
// contexts with [WithLogger]. Code deep in the call tree recovers it
// with [FromContext] instead of threading a *slog.Logger parameter
// through every signature.
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

// New builds a [*slog.Logger] writing to stderr, configured from the
// environment. JSON output is the default so production logs stay
// machine-parseable; LOG_FORMAT=text is friendlier for local runs.
// Every record carries service=sitechat for log aggregation.
func New() *slog.Logger {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: levelFromEnv()}
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h).With(slog.String("service", "sitechat"))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or [slog.Default] when
// none was attached, so call sites never nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
