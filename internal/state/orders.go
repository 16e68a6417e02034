package state

import (
	"context"
	"time"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/pkg/messaging/events"
)

// CreateOrder checks out the current cart. The cart lines are sent explicitly
// as {product_id, quantity} items. On success the cart is cleared and the
// order is prepended to the history. With a session the cart is reloaded
// from the server first so the payload matches what the server holds.
func (s *Store) CreateOrder(ctx context.Context) (api.Order, error) {
	s.clearError()
	if err := s.LoadCart(ctx); err != nil {
		return api.Order{}, err
	}

	s.mu.RLock()
	token := s.token
	email := s.user.Email
	lines := append([]CartLine(nil), s.cart...)
	s.mu.RUnlock()

	var err error
	switch {
	case len(lines) == 0:
		err = &ValidationError{Err: sferrors.ErrEmptyCart}
	case token == "":
		err = &ValidationError{Err: sferrors.ErrUnauthenticated}
	}
	if err != nil {
		s.setError(err)
		return api.Order{}, err
	}

	payload := api.CheckoutRequest{Items: make([]api.CheckoutItem, 0, len(lines))}
	order := api.Order{Lines: make([]api.OrderLine, 0, len(lines))}
	var total float64
	for _, l := range lines {
		payload.Items = append(payload.Items, api.CheckoutItem{ProductID: l.productID(), Quantity: l.Units()})
		order.Lines = append(order.Lines, api.OrderLine{ProductID: l.productID(), Name: l.Name, Price: l.Price, Quantity: api.Quantity(l.Units())})
		total += float64(l.Price) * float64(l.Units())
	}
	order.Total = api.Price(total)

	res, err := s.client.CreateOrder(ctx, token, payload)
	if err != nil {
		s.logger.WarnContext(ctx, "checkout failed", "error", err)
		s.setError(err)
		return api.Order{}, err
	}
	order.ID = res.OrderID
	order.Message = res.Message

	s.mu.Lock()
	s.cart = nil
	s.orders = append([]api.Order{order}, s.orders...)
	s.errMsg = ""
	if err := s.kv.Remove(ctx, kvstore.KeyCart); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove persisted cart", "error", err)
	}
	s.mu.Unlock()

	s.ordersCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "order placed", "order_id", order.ID, "items", len(payload.Items))

	event := events.OrderPlacedEvent{
		OrderID:    order.ID,
		Email:      email,
		Items:      len(payload.Items),
		TotalPrice: total,
		PlacedAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order placed event", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// LoadOrders replaces the order history with the server's list.
func (s *Store) LoadOrders(ctx context.Context) error {
	s.clearError()
	token, err := s.requireToken()
	if err != nil {
		return err
	}
	orders, err := s.client.Orders(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load orders", "error", err)
		s.setError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
	s.errMsg = ""
	return nil
}
