package config

import (
	"fmt"
	"strings"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

const defaultStorageProfile = "default"

// StorageConfig selects the key-value backend that keeps the session between runs.
type StorageConfig struct {
	Driver  string `koanf:"driver"`
	Path    string `koanf:"path"`
	Profile string `koanf:"profile"`
	Redis   struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`
}

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  profile: %s\n", c.Profile))
	switch c.Driver {
	case StorageSQLite:
		b.WriteString(fmt.Sprintf("  path: %s\n", c.Path))
	case StorageRedis:
		b.WriteString(fmt.Sprintf("  redis.addr: %s\n", c.Redis.Addr))
		b.WriteString(fmt.Sprintf("  redis.db: %d\n", c.Redis.DB))
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StorageSQLite
	}
	if c.Profile == "" {
		c.Profile = defaultStorageProfile
	}
	switch c.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Path == "" {
			return fmt.Errorf("storage path is required for the sqlite driver")
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage redis address is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Driver)
	}
	return nil
}
