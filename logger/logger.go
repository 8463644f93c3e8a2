// Package logger holds the process-wide structured logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a slog
// level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Initialize sets up the global logger writing to stdout. Format "json"
// selects the JSON handler, anything else the text handler.
func Initialize(level, format string) *slog.Logger {
	return InitializeTo(os.Stdout, level, format)
}

// InitializeTo is Initialize with an explicit writer.
func InitializeTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// Get returns the global logger, initializing it at info/text on first use.
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return Initialize("info", "text")
	}
	return l
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithService returns a logger tagged with a component name.
func WithService(name string) *slog.Logger {
	return Get().With("service", name)
}

// WithClient returns a logger tagged with a client id.
func WithClient(id string) *slog.Logger {
	return Get().With("client_id", id)
}

// WithJob returns a logger tagged with a scheduled job name.
func WithJob(name string) *slog.Logger {
	return Get().With("job", name)
}

// ExternalServiceResult logs the outcome of a call to an outside service:
// debug on success, error on failure.
func ExternalServiceResult(service, operation string, err error, args ...any) {
	all := append([]any{"service", service, "operation", operation}, args...)
	if err != nil {
		Get().Error("external service call failed", append(all, "error", err)...)
		return
	}
	Get().Debug("external service call succeeded", all...)
}
