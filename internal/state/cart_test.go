package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRows(t *testing.T) {
	rows := []api.CartRow{
		{ID: "10", ProductID: "1", Name: "Tea", Price: 10, Description: "first"},
		{ID: "11", ProductID: "2", Name: "Cup", Price: 5},
		{ID: "12", ProductID: "1", Name: "Tea (renamed)", Price: 99, Description: "second"},
		{ID: "13", Name: "Orphan", Price: 1},
	}

	lines := groupRows(rows)

	require.Len(t, lines, 3)
	assert.Equal(t, CartLine{
		ID: "10", ProductID: "1", Name: "Tea", Price: 10, Description: "first",
		Quantity: 2, RowIDs: []api.ID{"10", "12"},
	}, lines[0])
	assert.Equal(t, api.ID("11"), lines[1].ID)
	assert.Equal(t, Quantity(1), lines[1].Quantity)
	assert.Equal(t, api.ID("13"), lines[2].ID)
	assert.Empty(t, groupRows(nil))
}

func TestStore_CartTotals(t *testing.T) {
	testCases := []struct {
		name      string
		blob      string
		wantTotal float64
		wantCount int
	}{
		{
			name:      "price times quantity",
			blob:      `[{"id":"a","price":10,"quantity":2},{"id":"b","price":5,"quantity":1}]`,
			wantTotal: 25,
			wantCount: 3,
		},
		{
			name:      "missing quantity counts as one",
			blob:      `[{"id":"a","price":10},{"id":"b","price":5,"quantity":"x"}]`,
			wantTotal: 15,
			wantCount: 2,
		},
		{
			name:      "malformed price counts as zero",
			blob:      `[{"id":"a","price":"abc","quantity":3},{"id":"b","price":"2.5","quantity":"2"}]`,
			wantTotal: 5,
			wantCount: 5,
		},
		{name: "empty cart", blob: `[]`, wantTotal: 0, wantCount: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			kv := kvstore.NewMemoryStore()
			require.NoError(t, kv.Set(context.Background(), kvstore.KeyCart, tc.blob))

			// when
			s := newTestStore(t, newFakeAPI(), kv)

			// then
			assert.InDelta(t, tc.wantTotal, s.CartTotal(), 1e-9)
			assert.Equal(t, tc.wantCount, s.CartCount())
		})
	}
}

func TestStore_AddToCart_SameProductTwice(t *testing.T) {
	// given
	ctx := context.Background()
	s, kv := loggedInStore(t, newFakeAPI())

	// when
	require.NoError(t, s.AddToCart(ctx, "1"))
	require.NoError(t, s.AddToCart(ctx, "1"))

	// then
	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, api.ID("1"), cart[0].ProductID)
	assert.Equal(t, 2, cart[0].Units())
	assert.Equal(t, 2, s.CartCount())
	assert.InDelta(t, 20.0, s.CartTotal(), 1e-9)

	blob, err := kv.Get(ctx, kvstore.KeyCart)
	require.NoError(t, err)
	var persisted []CartLine
	require.NoError(t, json.Unmarshal([]byte(blob), &persisted))
	assert.Equal(t, cart, persisted)
}

func TestStore_CartActionsRequireSession(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	s := newTestStore(t, f, kvstore.NewMemoryStore())

	assert.ErrorIs(t, s.AddToCart(ctx, "1"), sferrors.ErrUnauthenticated)
	assert.ErrorIs(t, s.RemoveFromCart(ctx, "1"), sferrors.ErrUnauthenticated)
	assert.ErrorIs(t, s.UpdateCartQuantity(ctx, "1", 3), sferrors.ErrUnauthenticated)
	assert.ErrorIs(t, s.AddToCart(ctx, "1"), sferrors.ErrValidation)
	assert.Zero(t, f.callCount())
}

func TestStore_LoadCart_AnonymousIsNoop(t *testing.T) {
	f := newFakeAPI()
	s := newTestStore(t, f, kvstore.NewMemoryStore())

	assert.NoError(t, s.LoadCart(context.Background()))
	assert.Zero(t, f.callCount())
}

func TestStore_LoadCart_GroupsRows(t *testing.T) {
	// given
	f := newFakeAPI()
	f.rows = []api.CartRow{
		{ID: "7", ProductID: "1", Name: "Tea", Price: 10, Image: "tea.png"},
		{ID: "8", ProductID: "1", Name: "Other", Price: 11, Image: "other.png"},
	}
	s, _ := loggedInStore(t, f)

	// when
	require.NoError(t, s.LoadCart(context.Background()))

	// then
	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, api.ID("7"), cart[0].ID)
	assert.Equal(t, "Tea", cart[0].Name)
	assert.Equal(t, "tea.png", cart[0].Image)
	assert.Equal(t, api.Price(10), cart[0].Price)
	assert.Equal(t, 2, cart[0].Units())
}

func TestStore_LoadCart_Error(t *testing.T) {
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	apiErr := &api.APIError{Status: http.StatusUnauthorized, Message: "token expired"}
	f.failOn("cart", apiErr)

	err := s.LoadCart(context.Background())

	assert.Same(t, apiErr, err)
	assert.Equal(t, "token expired", s.Error())
}

func TestStore_RemoveFromCart(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	require.NoError(t, s.AddToCart(ctx, "2"))
	require.NoError(t, s.AddToCart(ctx, "1"))
	lineID := s.Cart()[0].ID

	// when
	require.NoError(t, s.RemoveFromCart(ctx, lineID))

	// then
	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, api.ID("2"), cart[0].ProductID)
	assert.Contains(t, f.calls, "remove 100")
	assert.Contains(t, f.calls, "remove 102")
}

func TestStore_RemoveFromCart_UnknownLine(t *testing.T) {
	s, _ := loggedInStore(t, newFakeAPI())

	err := s.RemoveFromCart(context.Background(), "nope")

	assert.ErrorIs(t, err, sferrors.ErrCartLineNotFound)
	assert.Equal(t, "cart line not found", s.Error())
}

// addBehindCache adds a unit straight on the server, the way another client would.
func addBehindCache(t *testing.T, f *fakeAPI, productID api.ID) {
	t.Helper()
	require.NoError(t, f.AddToCart(context.Background(), f.token, productID))
}

func TestStore_CartMutations_ResyncStaleCache(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(ctx context.Context, s *Store) error
		wantUnits int
		wantRows  []api.ID
	}{
		{
			name:      "set quantity counts the server's units",
			mutate:    func(ctx context.Context, s *Store) error { return s.UpdateCartQuantity(ctx, "100", 2) },
			wantUnits: 2,
			wantRows:  []api.ID{"100", "101"},
		},
		{
			name:      "decrease removes a unit the cache never saw",
			mutate:    func(ctx context.Context, s *Store) error { return s.UpdateCartQuantity(ctx, "100", 1) },
			wantUnits: 1,
			wantRows:  []api.ID{"100"},
		},
		{
			name:   "remove deletes every server row",
			mutate: func(ctx context.Context, s *Store) error { return s.RemoveFromCart(ctx, "100") },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			f := newFakeAPI()
			s, kv := loggedInStore(t, f)
			require.NoError(t, s.AddToCart(ctx, "1"))
			addBehindCache(t, f, "1")
			stale := newTestStore(t, f, kv)
			require.Equal(t, 1, stale.CartCount())

			// when
			require.NoError(t, tc.mutate(ctx, stale))

			// then
			var rows []api.ID
			for _, r := range f.rows {
				rows = append(rows, r.ID)
			}
			assert.Equal(t, tc.wantRows, rows)
			assert.Equal(t, tc.wantUnits, stale.CartCount())
		})
	}
}

func TestStore_Actions_ResetAndRecordError(t *testing.T) {
	testCases := []struct {
		name      string
		loggedIn  bool
		action    func(ctx context.Context, s *Store) error
		wantError string
	}{
		{
			name: "checkout of an empty cart",
			action: func(ctx context.Context, s *Store) error {
				_, err := s.CreateOrder(ctx)
				return err
			},
			wantError: "cart is empty",
		},
		{
			name:      "add without a session",
			action:    func(ctx context.Context, s *Store) error { return s.AddToCart(ctx, "1") },
			wantError: "authentication required",
		},
		{
			name:      "set quantity without a session",
			action:    func(ctx context.Context, s *Store) error { return s.UpdateCartQuantity(ctx, "1", 2) },
			wantError: "authentication required",
		},
		{
			name:      "orders without a session",
			action:    func(ctx context.Context, s *Store) error { return s.LoadOrders(ctx) },
			wantError: "authentication required",
		},
		{
			name:      "remove of an unknown line",
			loggedIn:  true,
			action:    func(ctx context.Context, s *Store) error { return s.RemoveFromCart(ctx, "nope") },
			wantError: "cart line not found",
		},
		{
			name:     "successful cart load",
			loggedIn: true,
			action:   func(ctx context.Context, s *Store) error { return s.LoadCart(ctx) },
		},
		{
			name:     "successful add",
			loggedIn: true,
			action:   func(ctx context.Context, s *Store) error { return s.AddToCart(ctx, "2") },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			f := newFakeAPI()
			var s *Store
			if tc.loggedIn {
				s, _ = loggedInStore(t, f)
			} else {
				s = newTestStore(t, f, kvstore.NewMemoryStore())
			}
			f.failOn("products", errors.New("catalog down"))
			require.False(t, s.LoadProducts(ctx))
			require.Equal(t, "catalog down", s.Error())

			// when
			err := tc.action(ctx, s)

			// then
			if tc.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantError)
			}
			assert.Equal(t, tc.wantError, s.Error())
		})
	}
}

func TestStore_UpdateCartQuantity(t *testing.T) {
	testCases := []struct {
		name        string
		initial     int
		quantity    int
		wantUnits   int
		wantRemoved bool
		wantCalls   []string
	}{
		{name: "increase", initial: 1, quantity: 3, wantUnits: 3, wantCalls: []string{"cart", "add 1", "add 1", "cart"}},
		{name: "decrease removes newest rows", initial: 3, quantity: 1, wantUnits: 1, wantCalls: []string{"cart", "remove 102", "remove 101", "cart"}},
		{name: "unchanged", initial: 2, quantity: 2, wantUnits: 2, wantCalls: []string{"cart"}},
		{name: "zero removes line", initial: 2, quantity: 0, wantRemoved: true, wantCalls: []string{"cart", "remove 100", "remove 101", "cart"}},
		{name: "negative removes line", initial: 1, quantity: -4, wantRemoved: true, wantCalls: []string{"cart", "remove 100", "cart"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			f := newFakeAPI()
			s, _ := loggedInStore(t, f)
			for range tc.initial {
				require.NoError(t, s.AddToCart(ctx, "1"))
			}
			lineID := s.Cart()[0].ID
			before := f.callCount()

			// when
			require.NoError(t, s.UpdateCartQuantity(ctx, lineID, tc.quantity))

			// then
			assert.Equal(t, tc.wantCalls, callsSince(f, before))
			if tc.wantRemoved {
				assert.Empty(t, s.Cart())
				return
			}
			require.Len(t, s.Cart(), 1)
			assert.Equal(t, tc.wantUnits, s.Cart()[0].Units())
		})
	}
}

func callsSince(f *fakeAPI, n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == n {
		return nil
	}
	return append([]string(nil), f.calls[n:]...)
}

func TestStore_UpdateCartQuantity_FailureResyncs(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFakeAPI()
	s, _ := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	lineID := s.Cart()[0].ID
	f.failOn("add 1", errors.New("connection reset"))

	// when
	err := s.UpdateCartQuantity(ctx, lineID, 2)

	// then
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, "connection reset", s.Error())
	assert.Equal(t, 1, s.CartCount())
}

func TestStore_ClearCart(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	s, kv := loggedInStore(t, f)
	require.NoError(t, s.AddToCart(ctx, "1"))
	before := f.callCount()

	require.NoError(t, s.ClearCart(ctx))

	assert.Empty(t, s.Cart())
	_, err := kv.Get(ctx, kvstore.KeyCart)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	assert.Equal(t, before, f.callCount(), "clearing is local only")
}
