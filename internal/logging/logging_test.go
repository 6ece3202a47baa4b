package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "thermodash.log")
	logger, closer, err := New(path, "debug")
	require.NoError(t, err)

	logger.Debug("reader started", "device", "/dev/ttyACM0")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "msg=\"reader started\"")
	require.Contains(t, string(b), "device=/dev/ttyACM0")
}

func TestNewWithoutFile(t *testing.T) {
	logger, closer, err := New("", "info")
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NoError(t, closer.Close())

	_, _, err = New("", "verbose")
	require.Error(t, err)
}
