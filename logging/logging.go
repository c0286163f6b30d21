// Package logging builds the slog logger used across finney. Records are
// rendered by pterm so they match the rest of the terminal output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New returns a slog logger writing through pterm.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	logger := pterm.DefaultLogger.
		WithLevel(parseLevel(cfg.Level)).
		WithFormatter(parseFormat(cfg.Format)).
		WithWriter(w)
	return slog.New(pterm.NewSlogHandler(logger))
}

func parseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}

func parseFormat(s string) pterm.LogFormatter {
	if strings.ToLower(strings.TrimSpace(s)) == "json" {
		return pterm.LogFormatterJSON
	}
	return pterm.LogFormatterColorful
}
