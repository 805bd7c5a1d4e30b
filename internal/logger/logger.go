// Package logger provides structured logging and metrics tracking for the holiday feed.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// structured JSON by default, or human-readable text for interactive use. Log
// records are rendered by charmbracelet/log; callers only deal with a message
// and a Fields map.
//
// Metrics tracking includes counters (incrementing values), gauges (point-in-time values),
// and timings (duration measurements) with automatic statistical aggregation.
//
// Example usage:
//
//	logger.Info("Page scraped", logger.Fields{
//	    "url":     url,
//	    "records": 12,
//	})
//
//	logger.Warn("Page fetch failed", logger.Fields{
//	    "url": url,
//	}, err)
//
//	logger.IncrCounter("refresh.success")
//	logger.RecordTiming("refresh.duration", duration)
package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects how log entries are rendered
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger provides structured logging
type Logger struct {
	minLevel Level
	charm    *charmlog.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

func init() {
	defaultLogger = New(LevelInfo, os.Stdout)
}

// ParseLevel converts a case-insensitive level name into a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// New creates a JSON logger with the specified minimum log level and output destination.
// Messages below the minimum level will be discarded.
func New(level Level, output io.Writer) *Logger {
	return NewWithFormat(level, output, FormatJSON)
}

// NewWithFormat creates a logger that renders entries in the given format.
func NewWithFormat(level Level, output io.Writer, format Format) *Logger {
	formatter := charmlog.JSONFormatter
	if format == FormatText {
		formatter = charmlog.TextFormatter
	}

	return &Logger{
		minLevel: level,
		charm: charmlog.NewWithOptions(output, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Level:           toCharmLevel(level),
			Formatter:       formatter,
		}),
	}
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error). This allows centralizing logger configuration.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the current package-level logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func toCharmLevel(level Level) charmlog.Level {
	switch level {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	keyvals := make([]interface{}, 0, len(fields)*2+2)

	// Sorted keys keep the output stable for tests and diffs
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyvals = append(keyvals, k, fields[k])
	}

	if err != nil {
		keyvals = append(keyvals, "error", err.Error())
	}

	l.charm.Log(toCharmLevel(level), message, keyvals...)
}

// Debug logs a debug message with optional structured fields.
// Debug messages are typically used for detailed diagnostic information.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
// Info messages are used for general operational information.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields and an optional error.
// Warning messages indicate recoverable conditions, such as one page failing to load.
func (l *Logger) Warn(message string, fields Fields, errs ...error) {
	l.log(LevelWarn, message, fields, firstErr(errs))
}

// Error logs an error message with optional structured fields and an error object.
// Error messages indicate failures that prevent normal operation.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	Default().Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	Default().Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields, errs ...error) {
	Default().Warn(message, fields, errs...)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	Default().Error(message, fields, err)
}
