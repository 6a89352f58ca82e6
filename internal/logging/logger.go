// Package logging provides structured logging for kepler.
// It wraps Go's log/slog to write JSON lines tagged with the component and,
// where it matters, the destination being served.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level names accepted by NewLogger and NewWriterLogger, case-insensitive.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Levels lists the level names from most to least verbose, lower-cased as
// they appear in the config file.
func Levels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// sink is the log file shared by a logger and every child derived from it.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

func (s *sink) close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Logger is a leveled JSON logger. Child loggers share the parent's output.
// It is safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	out  *sink
}

// NewLogger opens path for appending, creating parent directories, and
// returns a Logger writing to it. An empty path logs to stderr.
func NewLogger(path, level string) (*Logger, error) {
	if path == "" {
		return NewWriterLogger(os.Stderr, level), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewWriterLogger(f, level)
	l.out = &sink{file: f}
	return l, nil
}

// NewWriterLogger returns a Logger writing JSON lines to w. Close does not
// close w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{slog: slog.New(h)}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return &Logger{slog: slog.New(slog.DiscardHandler)}
}

// parseLevel maps a level name to its slog level. Unknown names mean INFO.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithComponent tags every entry with the emitting component, such as
// "pool" or "mailbox".
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{slog: l.slog.With(slog.String("component", component)), out: l.out}
}

// WithDestination tags every entry with a destination identifier.
func (l *Logger) WithDestination(id int) *Logger {
	return &Logger{slog: l.slog.With(slog.Int("destination", id)), out: l.out}
}

// Enabled reports whether entries at level would be written. Hot paths
// check it before building attributes.
func (l *Logger) Enabled(level string) bool {
	return l.slog.Enabled(context.Background(), parseLevel(level))
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close syncs and closes the log file opened by NewLogger. It is safe to
// call more than once, and from any child logger.
func (l *Logger) Close() error {
	return l.out.close()
}
