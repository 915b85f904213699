package logger

import (
	"log/slog"
	"strings"
)

const (
	levelTrace    = slog.LevelDebug - 4
	levelCritical = slog.LevelError + 4
)

func getLevelName(level slog.Leveler) string {
	switch level.Level() {
	case levelTrace:
		return "TRACE"
	case levelCritical:
		return "CRITICAL"
	}
	return level.Level().String()
}

// ParseLevel maps a config value such as "debug" or "critical" to a level.
// Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return levelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return levelCritical
	default:
		return slog.LevelInfo
	}
}
