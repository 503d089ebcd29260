// Package logging configures the zerolog logger used for diagnostics.
// Command results go to stdout; diagnostics always go to stderr.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LevelEnv overrides the configured log level
const LevelEnv = "WAYPOINT_LOG_LEVEL"

// New returns a console logger writing to w at the given level. The
// $WAYPOINT_LOG_LEVEL environment variable takes precedence over level.
func New(w io.Writer, level string) zerolog.Logger {
	if env := os.Getenv(LevelEnv); env != "" {
		level = env
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", "waypoint").
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to warn
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning", "":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}
