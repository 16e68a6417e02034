package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPlacedEvent(t *testing.T) {
	placedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := OrderPlacedEvent{OrderID: 42, Email: "a@b.c", Items: 3, TotalPrice: 25, PlacedAt: placedAt}

	payload, err := event.Payload()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, messaging.OrdersPlacedSubject, event.Subject())
	assert.EqualValues(t, 42, decoded["order_id"])
	assert.EqualValues(t, 3, decoded["items"])
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded["placed_at"])
}

func TestOrderPlacedEvent_MessageID(t *testing.T) {
	assert.Equal(t, "order-42", OrderPlacedEvent{OrderID: 42}.MessageID())
}
