package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel maps a textual level ("debug", "info", ...) to a LogLevel.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a subsystem-tagged structured logger. Components receive one
// through their constructors instead of reaching for a global.
type Logger struct {
	base      *slog.Logger
	subsystem string
}

// New creates a Logger writing slog text records to output.
func New(output io.Writer, level LogLevel) *Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level.SlogLevel(),
	})
	return &Logger{base: slog.New(handler)}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// Named returns a copy of the logger bound to the given subsystem.
func (l *Logger) Named(subsystem string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base, subsystem: subsystem}
}

// Subsystem returns the subsystem tag of this logger.
func (l *Logger) Subsystem() string {
	if l == nil {
		return ""
	}
	return l.subsystem
}

func (l *Logger) log(level LogLevel, err error, messageFmt string, args ...interface{}) {
	if l == nil || l.base == nil {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	var attrs []slog.Attr
	if l.subsystem != "" {
		attrs = append(attrs, slog.String("subsystem", l.subsystem))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.base.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func (l *Logger) Debug(messageFmt string, args ...interface{}) {
	l.log(LevelDebug, nil, messageFmt, args...)
}

// Info logs an informational message.
func (l *Logger) Info(messageFmt string, args ...interface{}) {
	l.log(LevelInfo, nil, messageFmt, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(messageFmt string, args ...interface{}) {
	l.log(LevelWarn, nil, messageFmt, args...)
}

// Error logs an error message.
func (l *Logger) Error(err error, messageFmt string, args ...interface{}) {
	l.log(LevelError, err, messageFmt, args...)
}
