// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by Init.
const (
	EnvLogLevel = "CHATCLEAN_LOG_LEVEL"
	EnvLogSink  = "CHATCLEAN_LOG_SINK" // e.g. "file:/var/log/chatclean.log"
)

// Log is the configured logger. It is also installed as slog's default.
var Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a slog
// level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Init installs a text logger at the given level. An empty level falls back
// to CHATCLEAN_LOG_LEVEL. Logs go to stderr unless CHATCLEAN_LOG_SINK names
// a file.
func Init(level string) *slog.Logger {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(EnvLogLevel)
	}

	var w io.Writer = os.Stderr
	if sink := os.Getenv(EnvLogSink); strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) // #nosec G304 -- operator-provided path
		if err == nil {
			w = f
		} else {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
		}
	}

	return InitWriter(w, level)
}

// InitWriter installs a text logger writing to w.
func InitWriter(w io.Writer, level string) *slog.Logger {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(Log)
	return Log
}
