// Package log configures structured logging (slog) for the harness.
// Diagnostics always go to stderr: probe processes own stdout for their
// single record emission, and nothing may interleave with it.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Option configures the handler.
type Option func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
	json      bool
	out       io.Writer
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
		out:   os.Stderr,
	}
}

// WithLevel sets the minimum level to report.
func WithLevel(level slog.Level) Option {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithLevelName sets the minimum level from its config-file name
// (debug, info, warn, error). Unknown names keep the default.
func WithLevelName(name string) Option {
	return func(c *handlerConfig) {
		switch name {
		case "debug":
			c.level = slog.LevelDebug
		case "info":
			c.level = slog.LevelInfo
		case "warn":
			c.level = slog.LevelWarn
		case "error":
			c.level = slog.LevelError
		}
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) Option {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithJSON switches output from key=value text to JSON lines.
func WithJSON(enabled bool) Option {
	return func(c *handlerConfig) {
		c.json = enabled
	}
}

// WithWriter redirects output; tests use this to capture lines.
func WithWriter(w io.Writer) Option {
	return func(c *handlerConfig) {
		c.out = w
	}
}

// NewHandler builds a slog.Handler with the given options.
func NewHandler(opts ...Option) slog.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	hopts := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	if cfg.json {
		return slog.NewJSONHandler(cfg.out, hopts)
	}
	return slog.NewTextHandler(cfg.out, hopts)
}

// Setup installs a handler built from opts as the slog default and
// returns the logger.
func Setup(opts ...Option) *slog.Logger {
	logger := slog.New(NewHandler(opts...))
	slog.SetDefault(logger)
	return logger
}
