// Package logger configures the process-wide slog default.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. Level and format come from
// DENSIVIEW_LOG_LEVEL and DENSIVIEW_LOG_JSON so a packaged desktop build can
// be switched to debug logging without a rebuild.
func Setup() {
	level := parseLevel(os.Getenv("DENSIVIEW_LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(os.Getenv("DENSIVIEW_LOG_JSON"), "true") {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
