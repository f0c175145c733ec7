// Package logging builds the zerolog logger shared by every command.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"hooksync/pkg/config"
)

// ParseLevel maps a configured level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing to out (stderr when nil).
// Each verbosity step lowers the configured level by one, down to trace.
func New(cfg config.LoggingConfig, verbosity int, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(cfg.Level) - zerolog.Level(verbosity)
	if level < zerolog.TraceLevel {
		level = zerolog.TraceLevel
	}

	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
