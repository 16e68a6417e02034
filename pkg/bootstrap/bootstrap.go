// Package bootstrap builds the process-wide logger and backing clients.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewLogger returns a logger writing to w in the configured format. Source
// locations are added at debug level. Records carry trace and request IDs
// found in the context.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.SlogLevel() == slog.LevelDebug,
		Level:     cfg.SlogLevel(),
	}
	var h slog.Handler
	if cfg.Format == config.LogFormatText {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(logger.NewContextHandler(h))
}

// NewRedisClient connects to redis and pings it, failing early if the server is unreachable.
func NewRedisClient(ctx context.Context, cfg config.StorageConfig, connectTimeout time.Duration) (*redis.Client, error) {
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: "storefront-" + cfg.Profile,
	})
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
	}
	return client, nil
}
