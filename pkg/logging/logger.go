// Package logging configures zerolog for the extractor and hands out
// component loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Field names set by this package.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr so that stdout stays free for command output.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel validates a level name as given on the command line.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "warning":
		return LevelWarn, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// parseLevel maps a level to zerolog, falling back to info.
func parseLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
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

// NewLogger creates a logger derived from the global one, tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// ForRun tags logger with a run identifier.
func ForRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str(FieldRunID, runID).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow and page boundaries
//   - Each request URL and attempt
//   - Page number, item count, next cursor
//   - Rate limit header updates
//
// Info: run and split lifecycle
//   - Split started / finished with page and record counts
//   - Progress every 10000 records
//   - Run summary and artifact publication
//
// Warn: recoverable conditions
//   - Retries with error_class and backoff
//   - 429 throttling and shared pauses
//
// Error: conditions that fail a split or the run
//   - Exhausted retries, authentication failures
//   - Protocol errors and schema violations
//   - Configuration errors
//
// Context Fields:
//   - component, run_id: set by NewLogger and ForRun
//   - subdomain, object: the split being extracted
//   - page, attempt: position within the split
//   - status, error_class, backoff: retry decisions
//   - records: counts in progress and summary lines
