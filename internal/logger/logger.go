// Package logger installs the process-wide slog handler.
package logger

import (
	"log/slog"
	"os"
)

// Init sets the default text logger. DEBUG=true lowers the level so the
// per-candidate dedup and enrichment decisions become visible.
func Init() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
