// Package sysutil holds small process-level helpers shared by the server
// entrypoint, the config loader, and the HTTP layer: log level wiring and
// env-string parsing.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string. Empty and
// unrecognized values fall back to info so a typo in LOG_LEVEL never
// silences the server.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(parseLevel(lvl))
}

func parseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsTruthy reports whether an env value opts a feature in. It accepts the
// usual spellings ("1", "true", "yes", "y", "on", any case); everything
// else, including the empty string, is false.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is more than whitespace, or ""
// when every value is blank. Callers use it to layer fallbacks, such as an
// auth-derived tenant over the X-Tenant-ID header over the demo default.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
