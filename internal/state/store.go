// Package state holds the session and cart state of the storefront client.
//
// A Store is constructed once and shared by reference. Its fields change only
// through its actions and every getter returns a copy. Remote calls run outside
// the lock, so concurrent actions are not serialized and the last response wins.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// API is the subset of the remote API the store depends on.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, fio, email, password string) (string, error)
	Products(ctx context.Context) ([]api.Product, error)
	Cart(ctx context.Context, token string) ([]api.CartRow, error)
	AddToCart(ctx context.Context, token string, productID api.ID) error
	RemoveFromCart(ctx context.Context, token string, cartItemID api.ID) error
	CreateOrder(ctx context.Context, token string, payload api.CheckoutRequest) (api.CheckoutResult, error)
	Orders(ctx context.Context, token string) ([]api.Order, error)
}

// AuthState is the session state machine: Anonymous until a login or
// registration succeeds, back to Anonymous on logout.
type AuthState int

const (
	Anonymous AuthState = iota
	Authenticated
)

func (a AuthState) String() string {
	if a == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

type Store struct {
	client    API
	kv        kvstore.Store
	logger    *slog.Logger
	validate  *validator.Validate
	publisher messaging.Publisher
	meter     metric.Meter

	clearCartOnLogout bool
	ordersCounter     metric.Int64Counter
	cartMutations     metric.Int64Counter

	mu       sync.RWMutex
	token    string
	user     auth.User
	products []api.Product
	cart     []CartLine
	orders   []api.Order
	loading  bool
	errMsg   string
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPublisher sets where OrderPlacedEvent is published after checkout.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithClearCartOnLogout makes Logout drop the cart as well as the session.
func WithClearCartOnLogout(clear bool) Option {
	return func(s *Store) { s.clearCartOnLogout = clear }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Store) { s.meter = m }
}

// New creates a store and restores the token and cart persisted in kv.
func New(ctx context.Context, client API, kv kvstore.Store, opts ...Option) (*Store, error) {
	s := &Store{
		client:    client,
		kv:        kv,
		logger:    slog.Default(),
		validate:  newValidator(),
		publisher: messaging.NoopPublisher{},
		meter:     otel.Meter("storefront"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "state")

	var err error
	s.ordersCounter, err = s.meter.Int64Counter("orders_placed", metric.WithDescription("Total number of placed orders"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orders_placed counter: %w", err)
	}
	s.cartMutations, err = s.meter.Int64Counter("cart_mutations", metric.WithDescription("Total number of remote cart mutations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cart_mutations counter: %w", err)
	}

	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) restore(ctx context.Context) error {
	token, err := s.kv.Get(ctx, kvstore.KeyToken)
	switch {
	case errors.Is(err, sferrors.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to restore session: %w", err)
	default:
		s.token = token
		s.user = s.userFromToken(token)
	}

	blob, err := s.kv.Get(ctx, kvstore.KeyCart)
	switch {
	case errors.Is(err, sferrors.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to restore cart: %w", err)
	default:
		var lines []CartLine
		if err := json.Unmarshal([]byte(blob), &lines); err != nil {
			s.logger.WarnContext(ctx, "discarding unreadable persisted cart", "error", err)
			return nil
		}
		s.cart = lines
	}
	return nil
}

// IsAuthenticated reports whether a session token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Store) AuthState() AuthState {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the identity decoded from the token. It is empty for opaque tokens.
func (s *Store) User() auth.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) Products() []api.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Product(nil), s.products...)
}

func (s *Store) Cart() []CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CartLine(nil), s.cart...)
}

func (s *Store) Orders() []api.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Order(nil), s.orders...)
}

// Loading reports whether the catalog is being fetched.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the message of the last failed action, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = errorMessage(err)
}

func (s *Store) clearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// errorMessage picks the text a view should display for err.
func errorMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
