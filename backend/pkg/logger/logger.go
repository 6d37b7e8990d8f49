// Package logger configures the process-wide slog logger and tags records
// with the request and caller identity that the middleware chain stores on
// the request context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextKey namespaces the values this package reads from a context.
type ContextKey string

const (
	// RequestIDKey holds the X-Request-ID assigned by the RequestID middleware.
	RequestIDKey ContextKey = "request_id"
	// UserIDKey holds the user ID from a verified session token.
	UserIDKey ContextKey = "user_id"
	// RoleKey holds the caller's role name (Law, Management, Internal, Guest).
	RoleKey ContextKey = "role"
)

// contextFields lists the identity attributes copied onto every record, in
// output order.
var contextFields = []ContextKey{RequestIDKey, UserIDKey, RoleKey}

// Config mirrors the log section of the service configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Init installs a logger writing to stdout as the slog default.
func Init(cfg *Config) {
	slog.SetDefault(New(cfg, os.Stdout))
}

// New builds a logger writing to w. Unknown levels fall back to info and
// unknown formats to text.
func New(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
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

// WithContext returns the default logger carrying whichever of request_id,
// user_id and role are set on ctx. Anonymous requests only get request_id.
func WithContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	for _, key := range contextFields {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			l = l.With(string(key), v)
		}
	}
	return l
}

func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
