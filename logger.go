package veyra

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with veyra-specific context, giving structured
// logging with consistent field names across every collection operation.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithCollection adds a collection-name field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{Logger: l.Logger.With("collection", name)}
}

// WithID adds an id field to the logger.
func (l *Logger) WithID(id uint64) *Logger {
	return &Logger{Logger: l.Logger.With("id", id)}
}

// WithLSN adds an lsn field to the logger.
func (l *Logger) WithLSN(lsn uint64) *Logger {
	return &Logger{Logger: l.Logger.With("lsn", lsn)}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id uint64, lsn uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "insert completed", "id", id, "lsn", lsn)
}

// LogBatchInsert logs a batch insert operation.
func (l *Logger) LogBatchInsert(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch insert completed with failures",
			"total", count, "failed", failed, "success", count-failed)
		return
	}
	l.InfoContext(ctx, "batch insert completed", "count", count)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "k", k, "results", resultsFound)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "remove completed", "id", id)
}

// LogSave logs a checkpoint save operation.
func (l *Logger) LogSave(ctx context.Context, path string, lsn uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "save completed", "path", path, "last_persisted_lsn", lsn)
}

// LogRecovery logs a WAL replay performed during load.
func (l *Logger) LogRecovery(ctx context.Context, entriesReplayed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "wal replay failed", "entries_replayed", entriesReplayed, "error", err)
		return
	}
	l.InfoContext(ctx, "wal replay completed", "entries_replayed", entriesReplayed)
}
