package logging

import (
	"log/slog"
	"os"
)

func Init() {
	level := slog.LevelError // default: keep the terminal UI clean

	if l, ok := os.LookupEnv("SPATIALMEET_LOG"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
