package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	mu        sync.RWMutex
	current   LogLevel
	logger    zerolog.Logger
	setupOnce sync.Once
)

func setup() {
	setupOnce.Do(func() {
		current = levelFromEnv()
		logger = newLogger(os.Stderr, "console")
		zerolog.SetGlobalLevel(toZerolog(current))
	})
}

// levelFromEnv reads DEBUG first and falls back to LOG_LEVEL.
func levelFromEnv() LogLevel {
	if debug := os.Getenv("DEBUG"); debug != "" {
		switch strings.ToLower(debug) {
		case "1", "true", "yes", "on":
			return LevelDebug
		}
	}
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(l LogLevel) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(out io.Writer, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Configure replaces the output writer and format ("console" or "json").
func Configure(out io.Writer, format string) {
	setup()
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = os.Stderr
	}
	logger = newLogger(out, format)
}

// SetLevel changes the active log level.
func SetLevel(l LogLevel) {
	setup()
	mu.Lock()
	defer mu.Unlock()
	current = l
	zerolog.SetGlobalLevel(toZerolog(l))
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	setup()
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Logger returns the underlying zerolog logger for structured call sites.
func Logger() *zerolog.Logger {
	setup()
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	Logger().Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	Logger().Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	Logger().Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	Logger().Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	Logger().Fatal().Msgf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
