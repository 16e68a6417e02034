package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig is optional: an empty URL disables order event publishing.
// When Stream is set the client creates or updates a JetStream stream with
// that name covering the storefront subjects.
type NATSConfig struct {
	Url           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	Stream        string        `koanf:"stream"`
	MaxReconnects int           `koanf:"maxreconnects"`
}

// Enabled reports whether a NATS server is configured.
func (c *NATSConfig) Enabled() bool {
	return c.Url != ""
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	if !c.Enabled() {
		b.WriteString("  disabled\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	if c.Stream != "" {
		b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	}
	b.WriteString(fmt.Sprintf("  maxreconnects: %d\n", c.MaxReconnects))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if strings.ContainsAny(c.Stream, " .*>") {
		return fmt.Errorf("invalid nats stream name: %q", c.Stream)
	}
	return nil
}
