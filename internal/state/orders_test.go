package state

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateOrder_EmptyCart(t *testing.T) {
	// given
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	before := f.callCount()

	// when
	_, err := s.CreateOrder(context.Background())

	// then
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, sferrors.ErrEmptyCart)
	assert.ErrorIs(t, err, sferrors.ErrValidation)
	assert.Equal(t, []string{"cart"}, callsSince(f, before), "only the cart is reloaded")
	assert.Equal(t, "cart is empty", s.Error())
}

func TestStore_CreateOrder_UsesServerCart(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	s, kv := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	addBehindCache(t, f, "1")
	addBehindCache(t, f, "2")
	stale := newTestStore(t, f, kv)
	require.Equal(t, 1, stale.CartCount())

	// when
	order, err := stale.CreateOrder(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, []api.CheckoutRequest{{Items: []api.CheckoutItem{
		{ProductID: "1", Quantity: 2},
		{ProductID: "2", Quantity: 1},
	}}}, f.checkouts)
	assert.Equal(t, api.Price(25), order.Total)
}

func TestStore_CreateOrder_ServerCartEmptiedBehindCache(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	s, kv := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	f.rows = nil
	stale := newTestStore(t, f, kv)

	// when
	_, err := stale.CreateOrder(ctx)

	// then
	assert.ErrorIs(t, err, sferrors.ErrEmptyCart)
	assert.Empty(t, f.checkouts)
	assert.Empty(t, stale.Cart())
}

func TestStore_CreateOrder_ReloadFailure(t *testing.T) {
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(context.Background(), "1"))
	f.failOn("cart", errors.New("timeout"))

	_, err := s.CreateOrder(context.Background())

	assert.EqualError(t, err, "timeout")
	assert.Empty(t, f.checkouts)
	assert.Equal(t, "timeout", s.Error())
}

func TestStore_CreateOrder_Anonymous(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, kvstore.KeyCart, `[{"id":"1","product_id":"1","price":10,"quantity":1}]`))
	f := newFakeAPI()
	s := newTestStore(t, f, kv)

	_, err := s.CreateOrder(ctx)

	assert.ErrorIs(t, err, sferrors.ErrUnauthenticated)
	assert.Zero(t, f.callCount())
	assert.Equal(t, "authentication required", s.Error())
}

func TestStore_CreateOrder_Success(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e messaging.Event) bool {
		placed, ok := e.(events.OrderPlacedEvent)
		return ok && placed.OrderID == 1 && placed.Items == 2 && placed.TotalPrice == 25
	})).Return(nil).Once()
	s, kv := loggedInStore(t, f, WithPublisher(pub))
	require.NoError(t, s.AddToCart(ctx, "1"))
	require.NoError(t, s.AddToCart(ctx, "2"))
	require.NoError(t, s.AddToCart(ctx, "1"))

	// when
	order, err := s.CreateOrder(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "Order placed", order.Message)
	assert.Equal(t, api.Price(25), order.Total)
	assert.Equal(t, []api.CheckoutRequest{{Items: []api.CheckoutItem{
		{ProductID: "1", Quantity: 2},
		{ProductID: "2", Quantity: 1},
	}}}, f.checkouts)

	assert.Empty(t, s.Cart())
	_, err = kv.Get(ctx, kvstore.KeyCart)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	require.Len(t, s.Orders(), 1)
	assert.Equal(t, order, s.Orders()[0])
	pub.AssertExpectations(t)
}

func TestStore_CreateOrder_PrependsToHistory(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	_, err := s.CreateOrder(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AddToCart(ctx, "2"))

	_, err = s.CreateOrder(ctx)

	require.NoError(t, err)
	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	assert.Equal(t, int64(1), orders[1].ID)
}

func TestStore_CreateOrder_Failure(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	apiErr := &api.APIError{Status: http.StatusConflict, Message: "out of stock"}
	f.failOn("order", apiErr)

	// when
	_, err := s.CreateOrder(ctx)

	// then
	assert.Same(t, apiErr, err)
	assert.Len(t, s.Cart(), 1, "cart is kept when checkout fails")
	assert.Empty(t, s.Orders())
	assert.Equal(t, "out of stock", s.Error())
}

func TestStore_CreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down"))
	s, _ := loggedInStore(t, newFakeAPI(), WithPublisher(pub))
	require.NoError(t, s.AddToCart(ctx, "1"))

	_, err := s.CreateOrder(ctx)

	assert.NoError(t, err)
	assert.Empty(t, s.Cart())
}

func TestStore_LoadOrders(t *testing.T) {
	t.Run("Error - anonymous", func(t *testing.T) {
		f := newFakeAPI()
		s := newTestStore(t, f, kvstore.NewMemoryStore())

		err := s.LoadOrders(context.Background())

		assert.ErrorIs(t, err, sferrors.ErrUnauthenticated)
		assert.Zero(t, f.callCount())
	})

	t.Run("Success - replaces history", func(t *testing.T) {
		f := newFakeAPI()
		f.orders = []api.Order{{ID: 5}, {ID: 6}}
		s, _ := loggedInStore(t, f)

		require.NoError(t, s.LoadOrders(context.Background()))

		assert.Equal(t, []api.Order{{ID: 5}, {ID: 6}}, s.Orders())
	})
}
