package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// LogConfig controls the diagnostics written to stderr. Command output on
// stdout is never affected.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SlogLevel maps the configured level to slog. Unknown or empty means info.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	b.WriteString(fmt.Sprintf("  format: %s\n", c.Format))
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Level)
	}
	switch c.Format {
	case "":
		c.Format = LogFormatJSON
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("unknown log format: %s", c.Format)
	}
	return nil
}

// ShutdownConfig bounds how long `serve` waits for in-flight view requests.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Context returns a context for graceful shutdown. It outlives the
// cancellation of parent, which is usually what triggered the shutdown.
func (c *ShutdownConfig) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), c.Timeout)
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
