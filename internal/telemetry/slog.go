package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// serviceName tags every log record so aggregated logs can be filtered per
// service when the API runs alongside the importer and other jobs.
const serviceName = "clawhub"

// SetupLogger configures the global slog default logger from the logging
// section of the application configuration.
//
// format: "json" → JSONHandler (machine readable; production default),
// anything else → TextHandler (human readable, local development).
//
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to
// "info". Debug level also adds file:line source attribution.
//
// The configured logger is installed as the default so slog.Info/Warn/Error
// calls elsewhere use it without carrying a *slog.Logger around.
func SetupLogger(format, level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", serviceName))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
