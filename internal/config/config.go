// Package config holds the aggregate configuration of the storefront client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

// ServiceName prefixes environment variables, e.g. STOREFRONT_API_BASEURL.
const ServiceName = "storefront"

var _ configloader.Validator = (*Config)(nil)

// SessionConfig controls what survives a logout.
type SessionConfig struct {
	ClearCartOnLogout bool `koanf:"clearcartonlogout"`
}

type Config struct {
	API            config.APIConfig            `koanf:"api"`
	Storage        config.StorageConfig        `koanf:"storage"`
	Session        SessionConfig               `koanf:"session"`
	Log            config.LogConfig            `koanf:"log"`
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Nats           config.NATSConfig           `koanf:"nats"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	PProf          config.PProfConfig          `koanf:"pprof"`
}

// Defaults returns the lowest-priority values. The sqlite file lives in the
// user config directory so the session survives restarts.
func Defaults() map[string]any {
	return map[string]any{
		"api.baseurl":                        "http://localhost:8080/api",
		"api.timeout":                        "10s",
		"storage.driver":                     config.StorageSQLite,
		"storage.path":                       defaultStoragePath(),
		"storage.profile":                    "default",
		"log.level":                          "warn",
		"log.format":                         config.LogFormatText,
		"server.host":                        "127.0.0.1",
		"server.port":                        8090,
		"server.maxHeaderBytes":              1 << 20,
		"server.timeout.read":                "5s",
		"server.timeout.write":               "15s",
		"server.timeout.idle":                "60s",
		"server.timeout.readHeader":          "2s",
		"shutdown.timeout":                   "10s",
		"nats.timeout":                       "5s",
		"nats.maxreconnects":                 3,
		"telemetry.timeout":                  "5s",
		"telemetry.sampleratio":              1.0,
		"circuitbreaker.consecutivefailures": 5,
		"circuitbreaker.errorratepercent":    50,
		"circuitbreaker.opentimeout":         "30s",
		"pprof.addr":                         "127.0.0.1:6060",
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ServiceName, "storefront.db")
}

// Load reads the configuration from defaults, configFile, envFile and the environment.
func Load(configFile, envFile string) (*Config, error) {
	cfg, err := configloader.Load[*Config](ServiceName,
		configloader.WithDefaults(Defaults()),
		configloader.WithConfigFile(configFile),
		configloader.WithEnvFile(envFile),
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.API.String())
	b.WriteString(c.Storage.String())
	if c.Storage.Driver == config.StorageRedis {
		b.WriteString(fmt.Sprintf("  redis.password: %s\n", mask(c.Storage.Redis.Password)))
	}

	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  clearcartonlogout: %t\n", c.Session.ClearCartOnLogout))

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.CircuitBreaker.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Log.String())

	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return nil
}
