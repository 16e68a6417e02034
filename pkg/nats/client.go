// Package nats publishes storefront events to NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const clientName = "storefront"

// Connect dials the server and returns a JetStream context. When cfg.Stream
// is set the stream is created or updated to cover the storefront subjects.
// The caller owns the connection and should Drain it.
func Connect(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.Url,
		nats.Name(clientName),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS connection restored", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if cfg.Stream != "" {
		streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{messaging.SubjectPrefix + ">"},
		}); err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
		}
	}
	return nc, js, nil
}
