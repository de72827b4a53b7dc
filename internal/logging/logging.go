// Package logging builds the CLI's slog logger on top of charmbracelet/log.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Options controls the console logger.
type Options struct {
	Debug      bool
	Timestamps bool
	Prefix     string
}

// New returns a slog.Logger that renders through charmbracelet/log at info
// level, or debug level when opts.Debug is set.
func New(w io.Writer, opts Options) *slog.Logger {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: opts.Timestamps,
		Level:           level,
		Prefix:          opts.Prefix,
	})
	return slog.New(handler)
}
