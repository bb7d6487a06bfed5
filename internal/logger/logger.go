// Package logger sets up the structured logger shared by the CLI and the
// pipeline.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level with timestamps.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole returns a human-readable console logger on stdout. Verbose
// enables debug-level output.
func NewConsole(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return New(zerolog.ConsoleWriter{Out: os.Stdout}, level)
}
