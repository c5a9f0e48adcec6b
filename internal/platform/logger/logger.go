package logger

import (
	"log/slog"
	"os"
)

// New returns the process root logger: JSON to stdout, level from
// CERTLEDGER_LOG_LEVEL (debug, info, warn, error).
func New() *slog.Logger {
	var level slog.Level
	switch os.Getenv("CERTLEDGER_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
