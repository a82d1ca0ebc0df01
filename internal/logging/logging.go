// Package logging builds the module's central slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a JSON logger writing to stderr at the given level.
// Unknown level strings fall back to info.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "INFO":
		l = slog.LevelInfo
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	return slog.New(handler)
}
