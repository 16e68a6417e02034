// Package api is the HTTP client of the remote storefront API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	contentType     = "application/json;charset=UTF-8"
	maxResponseSize = 10 << 20
)

// Client issues single, non-retried requests against the remote API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTransport replaces the round tripper of the underlying http.Client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithTracing instruments the transport with OpenTelemetry spans.
func WithTracing() Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = otelhttp.NewTransport(base)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API base URL must be absolute: %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api_client")
	return c, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, "/login", credentials{Email: email, Password: password})
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, fio, email, password string) (string, error) {
	return c.authenticate(ctx, "/signup", credentials{FIO: fio, Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body credentials) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return "", err
	}
	token := resp.UserToken
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		return "", fmt.Errorf("%w: POST %s: no token in response", sferrors.ErrMalformedResponse, path)
	}
	return token, nil
}

// Products lists the public catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Cart returns the raw cart rows, one per unit.
func (c *Client) Cart(ctx context.Context, token string) ([]CartRow, error) {
	if token == "" {
		return nil, sferrors.ErrUnauthenticated
	}
	var rows []CartRow
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AddToCart adds one unit of productID to the cart.
func (c *Client) AddToCart(ctx context.Context, token string, productID ID) error {
	if token == "" {
		return sferrors.ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPost, "/cart/"+url.PathEscape(productID.String()), token, nil, nil)
}

// RemoveFromCart deletes the cart row cartItemID.
func (c *Client) RemoveFromCart(ctx context.Context, token string, cartItemID ID) error {
	if token == "" {
		return sferrors.ErrUnauthenticated
	}
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(cartItemID.String()), token, nil, nil)
}

// CreateOrder places an order for the given lines.
func (c *Client) CreateOrder(ctx context.Context, token string, payload CheckoutRequest) (CheckoutResult, error) {
	if token == "" {
		return CheckoutResult{}, sferrors.ErrUnauthenticated
	}
	var resp checkoutResponse
	if err := c.do(ctx, http.MethodPost, "/order", token, payload, &resp); err != nil {
		return CheckoutResult{}, err
	}
	if resp.OrderID == nil || *resp.OrderID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: POST /order: missing order_id", sferrors.ErrMalformedResponse)
	}
	id, err := strconv.ParseInt(resp.OrderID.String(), 10, 64)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: POST /order: order_id %q is not numeric", sferrors.ErrMalformedResponse, resp.OrderID.String())
	}
	return CheckoutResult{OrderID: id, Message: resp.Message}, nil
}

// Orders lists the order history of the token owner.
func (c *Client) Orders(ctx context.Context, token string) ([]Order, error) {
	if token == "" {
		return nil, sferrors.ErrUnauthenticated
	}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/order", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "request failed", "op", op, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	c.logger.DebugContext(ctx, "request completed", "op", op, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", sferrors.ErrMalformedResponse, op, err)
	}
	return nil
}
