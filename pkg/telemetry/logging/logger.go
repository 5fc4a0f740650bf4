package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains configuration for New.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json", "text").
	Format string

	// AddSource includes file and line number in logs.
	AddSource bool

	// RedactIdentifiers hashes the values of RedactKeys.
	RedactIdentifiers bool

	// RedactKeys are the attribute keys to hash. Default: ["identifier"].
	RedactKeys []string

	// Writer is the output writer. Default: os.Stdout.
	Writer io.Writer
}

// Logger is a *slog.Logger whose level can be changed after creation.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var base slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		base = slog.NewJSONHandler(writer, opts)
	case "text":
		base = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("invalid log format: unknown log format: %s", cfg.Format)
	}

	var redactor *Redactor
	if cfg.RedactIdentifiers {
		redactor = NewRedactor(cfg.RedactKeys...)
	}

	return &Logger{
		Logger: slog.New(newHandler(base, redactor)),
		level:  levelVar,
	}, nil
}

// SetLevel changes the minimum level of the logger and every logger
// derived from it.
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(parsed)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}
