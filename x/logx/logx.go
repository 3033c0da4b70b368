// Package logx builds the zerolog loggers shared by the firmware and the
// host tools.
package logx

import (
	"io"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
)

// Console returns a human-readable logger on a colour-capable stdout.
func Console(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out: colorable.NewColorableStdout(),
	}
	return New(w, level)
}

// New returns a timestamped logger writing to w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// give fallback.
func ParseLevel(s string, fallback zerolog.Level) zerolog.Level {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return fallback
	}
	return lvl
}

// Cap tags a child logger with the capability it belongs to.
func Cap(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("cap", name).Logger()
}
