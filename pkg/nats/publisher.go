package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// streamPublisher is the part of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// deduplicated is implemented by events with a stable identity. JetStream
// drops a second publish with the same message ID within the stream's
// duplicate window.
type deduplicated interface {
	MessageID() string
}

// JetStreamPublisher publishes events and waits for the stream acknowledgement.
type JetStreamPublisher struct {
	js streamPublisher
}

var _ messaging.Publisher = (*JetStreamPublisher)(nil)

func NewJetStreamPublisher(js streamPublisher) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Subject(), err)
	}
	var opts []jetstream.PublishOpt
	if d, ok := event.(deduplicated); ok {
		opts = append(opts, jetstream.WithMsgID(d.MessageID()))
	}
	if _, err = p.js.Publish(ctx, event.Subject(), data, opts...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
	}
	return nil
}
