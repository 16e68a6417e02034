// Package kvstore provides the durable string key-value storage that keeps a
// storefront session between runs.
package kvstore

import (
	"context"
	"fmt"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/abgdnv/storefront/pkg/config"
)

// Well-known keys.
const (
	KeyToken = "user_token"
	KeyCart  = "cart"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = sferrors.ErrNotFound

// Store is a string key -> string value storage.
// Writes are last-write-wins; there is no locking across processes.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

const redisConnectTimeout = 5 * time.Second

// Open creates the Store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageSQLite, "":
		return NewSQLiteStore(ctx, cfg.Path, cfg.Profile)
	case config.StorageRedis:
		client, err := bootstrap.NewRedisClient(ctx, cfg, redisConnectTimeout)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Profile), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
