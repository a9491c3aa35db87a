// Package logging provides structured logging configuration using log/slog.
//
// Sync runs store their run ID in the context so every log entry written
// while processing a run can be correlated with its audit artifact.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Logs always go to stderr so stdout stays free for command output. Any
// extra sinks (such as a RotatingFile) receive the same entries.
func Setup(level, format string, sinks ...io.Writer) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var out io.Writer = os.Stderr
	if len(sinks) > 0 {
		out = io.MultiWriter(append([]io.Writer{os.Stderr}, sinks...)...)
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// RotatingFile returns a size-rotated log file writer. Zero limits use the
// lumberjack defaults (100 MB, keep all backups, no age limit).
func RotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type ctxKey struct{}

// ContextWithRunID stores a sync run ID in ctx.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, runID)
}

// RunIDFromContext returns the run ID stored by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with run context.
//
// When ctx carries a run ID, the returned logger includes run_id in all
// log entries.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("sheet loaded", "sheet", sheet, "rows", len(rows))
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step process.
//
// Usage:
//
//	groupLogger := logging.WithFields(ctx,
//	    "entity", def.Key,
//	    "sheet", def.Sheet,
//	)
//	groupLogger.Info("group started")
//	// ... later ...
//	groupLogger.Info("group finished", "created", stats.Created)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
