package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns the JSON slog logger shared by the whole service.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewNop returns a logger that discards everything; useful in tests.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
