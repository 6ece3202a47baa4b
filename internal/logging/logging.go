package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New returns a text slog logger writing to stdout and, when path is set, to
// that file as well. The returned closer releases the file; it is a no-op
// without one. The stdlib log package is pointed at the same writer.
func New(path, level string) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	writers := []io.Writer{os.Stdout}
	var closer io.Closer = nopCloser{}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	mw := io.MultiWriter(writers...)
	logger := slog.New(slog.NewTextHandler(mw, &slog.HandlerOptions{Level: lvl}))
	log.SetOutput(mw)
	return logger, closer, nil
}

// ParseLevel maps debug|info|warn|error (case-insensitive) to a slog level.
// Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
