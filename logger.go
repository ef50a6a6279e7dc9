package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger. Debug mode switches to a text
// handler at debug level so per-cycle score traces stay readable.
func NewLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
