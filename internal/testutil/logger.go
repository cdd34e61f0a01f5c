package testutil

import (
	"io"
	"log/slog"
)

// SilentLogger returns a logger that discards everything. Tests pass it
// wherever a component requires structured logging.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
