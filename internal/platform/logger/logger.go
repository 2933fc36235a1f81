// Package logger constructs the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON slog logger. Level comes from EVENTGATE_LOG_LEVEL
// (debug|info|warn|error), defaulting to info.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("EVENTGATE_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
