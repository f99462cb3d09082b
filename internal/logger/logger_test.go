package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewToTagsService(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	log := NewTo("browse", &buf)
	log.Info("hidden")
	log.Warn("shown", slog.Int("n", 1))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "service=browse")
	require.Contains(t, out, "n=1")
}
