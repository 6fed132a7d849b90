package cli

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// LogLevelFromString converts a string to slog.Level with better defaults
func LogLevelFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		// Default to WARN level if not specified or invalid
		return slog.LevelWarn
	}
}

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(output io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: LogLevelFromString(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// logListener reports engine events through slog. slog handlers are safe
// for concurrent use, so one listener serves the whole worker pool.
type logListener struct {
	logger *slog.Logger
}

func (l logListener) ValidationStarted(file string, expectedRows int) {
	l.logger.Info("validation started", "file", file, "expected_rows", expectedRows)
}

func (l logListener) Progress(file string, current, total int) {
	if total > 0 {
		l.logger.Debug("progress", "file", file, "rows", current, "expected", total)
		return
	}
	l.logger.Debug("progress", "file", file, "rows", current)
}

func (l logListener) ValidationCompleted(file string, errorCount int, elapsed time.Duration) {
	l.logger.Info("validation completed", "file", file, "errors", errorCount, "elapsed", elapsed)
}
