package config

import (
	"log/slog"
	"strings"
)

// EnvLogLevel selects the log level when --verbose is not given.
const EnvLogLevel = "ASSETBUILDER_LOG_LEVEL"

// ParseLogLevel maps debug/info/warn/error to a slog level. Unknown values
// fall back to info.
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
