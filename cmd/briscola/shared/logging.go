package shared

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name onto zerolog, with debug taking precedence
func ParseLevel(name string, debug bool) (zerolog.Level, error) {
	if debug {
		return zerolog.DebugLevel, nil
	}
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}

// SetupLogger configures zerolog with pretty console output
func SetupLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger configures zerolog for structured (JSON) output
func SetupStructuredLogger(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()
}
