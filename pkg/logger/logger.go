package logger

import (
	"log/slog"
	"os"
)

const serviceName = "bozor-billing"

var defaultLogger *slog.Logger

// Init configures the process-wide logger. Production logs JSON at
// info level; everything else gets a debug-level text handler.
func Init(env string) {
	var handler slog.Handler

	switch env {
	case "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	defaultLogger = slog.New(handler).With("service", serviceName)
	slog.SetDefault(defaultLogger)
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize so early callers never hit a nil logger
		Init("development")
	}
	return defaultLogger
}
