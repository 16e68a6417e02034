// Package messaging defines the events the storefront client emits.
package messaging

import (
	"context"
)

// SubjectPrefix scopes every subject the client publishes to.
const SubjectPrefix = "storefront."

const OrdersPlacedSubject = SubjectPrefix + "orders.placed"

// Event is a message with a fixed subject and a JSON payload.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Publisher delivers events to a broker. Publishing is best effort for the
// store: a failure never undoes the action that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
