package config

import (
	"fmt"
	"strings"
	"time"
)

// TelemetryConfig enables trace export over OTLP/HTTP and the Prometheus
// metrics endpoint of `serve`. Spans cover the calls made to the storefront
// API. An empty endpoint disables trace export.
type TelemetryConfig struct {
	Metrics     bool          `koanf:"metrics"`
	Endpoint    string        `koanf:"endpoint"`
	Insecure    bool          `koanf:"insecure"`
	Timeout     time.Duration `koanf:"timeout"`
	SampleRatio float64       `koanf:"sampleratio"`
}

// Enabled reports whether traces should be exported.
func (c *TelemetryConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	b.WriteString(fmt.Sprintf("  metrics: %t\n", c.Metrics))
	if !c.Enabled() {
		b.WriteString("  traces: disabled\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  endpoint: %s (insecure: %t)\n", c.Endpoint, c.Insecure))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  sampleratio: %.2f\n", c.SampleRatio))
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("telemetry endpoint must be host:port without a scheme: %s", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("telemetry sampleratio must be within [0, 1], got %v", c.SampleRatio)
	}
	return nil
}
