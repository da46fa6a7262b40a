// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"wellwatch/internal/config"
)

// ParseLevel maps a LOG_LEVEL value to a slog.Level. Unknown values fall back
// to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a colored text logger for local development and a JSON logger
// everywhere else.
func New(cfg *config.Config, app string) *slog.Logger {
	return newWithWriter(os.Stdout, cfg, app)
}

func newWithWriter(w io.Writer, cfg *config.Config, app string) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)

	if cfg.Environment == "local" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", app)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		"app", app,
		"version", cfg.Build.Version,
		"env", cfg.Environment,
	)
}
