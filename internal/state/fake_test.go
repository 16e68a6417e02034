package state

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAPI keeps a per-unit server cart in memory, the way the remote API does.
type fakeAPI struct {
	mu        sync.Mutex
	token     string
	products  map[api.ID]api.Product
	rows      []api.CartRow
	nextRowID int
	orders    []api.Order
	nextOrder int64
	calls     []string
	err       map[string]error
	checkouts []api.CheckoutRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		token: "tok-1",
		products: map[api.ID]api.Product{
			"1": {ID: "1", Name: "Tea", Price: 10, Description: "green"},
			"2": {ID: "2", Name: "Cup", Price: 5},
		},
		nextRowID: 100,
		nextOrder: 1,
		err:       map[string]error{},
	}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err[call]
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) failOn(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err[call] = err
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (string, error) {
	if err := f.record("login"); err != nil {
		return "", err
	}
	return f.token, nil
}

func (f *fakeAPI) Register(_ context.Context, _, _, _ string) (string, error) {
	if err := f.record("register"); err != nil {
		return "", err
	}
	return f.token, nil
}

func (f *fakeAPI) Products(_ context.Context) ([]api.Product, error) {
	if err := f.record("products"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []api.Product{f.products["1"], f.products["2"]}, nil
}

func (f *fakeAPI) Cart(_ context.Context, token string) ([]api.CartRow, error) {
	if token == "" {
		return nil, sferrors.ErrUnauthenticated
	}
	if err := f.record("cart"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.CartRow(nil), f.rows...), nil
}

func (f *fakeAPI) AddToCart(_ context.Context, _ string, productID api.ID) error {
	if err := f.record("add " + productID.String()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	f.rows = append(f.rows, api.CartRow{
		ID:          api.ID(strconv.Itoa(f.nextRowID)),
		ProductID:   productID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
	})
	f.nextRowID++
	return nil
}

func (f *fakeAPI) RemoveFromCart(_ context.Context, _ string, cartItemID api.ID) error {
	if err := f.record("remove " + cartItemID.String()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == cartItemID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, _ string, payload api.CheckoutRequest) (api.CheckoutResult, error) {
	if err := f.record("order"); err != nil {
		return api.CheckoutResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, payload)
	id := f.nextOrder
	f.nextOrder++
	f.rows = nil
	f.orders = append(f.orders, api.Order{ID: id})
	return api.CheckoutResult{OrderID: id, Message: "Order placed"}, nil
}

func (f *fakeAPI) Orders(_ context.Context, _ string) ([]api.Order, error) {
	if err := f.record("orders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Order(nil), f.orders...), nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestStore(t *testing.T, client API, kv kvstore.Store, opts ...Option) *Store {
	t.Helper()
	s, err := New(context.Background(), client, kv, opts...)
	require.NoError(t, err)
	return s
}

// loggedInStore returns a store with an active session against f.
func loggedInStore(t *testing.T, f *fakeAPI, opts ...Option) (*Store, kvstore.Store) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	s := newTestStore(t, f, kv, opts...)
	require.True(t, s.Login(context.Background(), "ivan@example.com", "secret"))
	return s, kv
}
