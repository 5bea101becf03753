package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It writes JSON to stderr until Init
// replaces it.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Level names accepted by --log-level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer

	// File, when set, receives JSON logs in addition to Output and is
	// rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Init replaces Logger according to cfg
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var out io.Writer = cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
			LocalTime:  true,
		})
	}

	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// parseLevel falls back to info for unknown names
func parseLevel(l Level) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(string(l)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRunID tags l with the convergence run
func WithRunID(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str("run_id", runID).Logger()
}

// WithResource tags l with a resource key and the action being applied
func WithResource(l zerolog.Logger, key, action string) zerolog.Logger {
	return l.With().Str("resource", key).Str("action", action).Logger()
}
