// Package logging builds the slog logger used by the quantities tools from
// the logging section of the configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sambeau/quantities/config"
)

// ParseLevel maps a config level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
}

// New creates a logger writing to the configured output. stdout and stderr
// stand in for the process streams so callers and tests can capture them.
// The returned closer releases a log file; it is a no-op for the streams.
func New(cfg config.LoggingConfig, stdout, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stderr":
		out = stderr
	case "stdout":
		out = stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return slog.New(handler), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
