// Package logging provides a structured logger built on [log/slog].
// The logger is constructed once at startup from explicit options via [New]
// and distributed through context values using [WithLogger] / [FromContext],
// so request handlers and pipeline steps never reach for a global.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Options controls logger construction. Zero values select the defaults
// (info level, JSON output).
type Options struct {
	// Level is the minimum severity: debug, info, warn, error. Default: info.
	Level string
	// Format selects the handler: "json" for production, "text" for local
	// development. Default: json.
	Format string
}

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// New constructs a [*slog.Logger] from the given options, writing to stderr.
func New(opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, hopts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, hopts)
	}

	return slog.New(handler)
}

// NewFromEnv constructs a logger from the LOG_LEVEL and LOG_FORMAT
// environment variables. Used before the config file has been loaded.
func NewFromEnv() *slog.Logger {
	return New(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the [*slog.Logger] stored in ctx.
// If no logger is present it returns [slog.Default] so callers never
// need to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel converts a string to a [slog.Level], defaulting to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
