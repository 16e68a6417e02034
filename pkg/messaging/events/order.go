// Package events holds the payloads published by the storefront client.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
)

// OrderPlacedEvent is published after the API accepted a checkout.
type OrderPlacedEvent struct {
	OrderID    int64     `json:"order_id"`
	Email      string    `json:"email,omitempty"`
	Items      int       `json:"items"`
	TotalPrice float64   `json:"total_price"`
	PlacedAt   time.Time `json:"placed_at"`
}

func (o OrderPlacedEvent) Subject() string {
	return messaging.OrdersPlacedSubject
}

func (o OrderPlacedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

// MessageID identifies the order so a retried publish is not delivered twice.
func (o OrderPlacedEvent) MessageID() string {
	return "order-" + strconv.FormatInt(o.OrderID, 10)
}
