package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs a text logger on stdout with the level from LOG_LEVEL.
func New(service string) *slog.Logger {
	return NewTo(service, os.Stdout)
}

// NewTo is New writing to w. The terminal front end logs to a file so
// records do not tear the screen.
func NewTo(service string, w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
