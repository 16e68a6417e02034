// Package rest exposes the storefront views as a local JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/api"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/internal/state"
	"github.com/abgdnv/storefront/pkg/auth"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Storefront is the state the views read and the actions they trigger.
type Storefront interface {
	IsAuthenticated() bool
	User() auth.User
	Products() []api.Product
	Cart() []state.CartLine
	CartTotal() float64
	CartCount() int
	Orders() []api.Order
	Loading() bool
	Error() string

	Login(ctx context.Context, email, password string) bool
	Register(ctx context.Context, fio, email, password string) error
	Logout(ctx context.Context) error
	LoadProducts(ctx context.Context) bool
	LoadCart(ctx context.Context) error
	AddToCart(ctx context.Context, productID api.ID) error
	RemoveFromCart(ctx context.Context, lineID api.ID) error
	UpdateCartQuantity(ctx context.Context, lineID api.ID, quantity int) error
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context) (api.Order, error)
	LoadOrders(ctx context.Context) error
}

type Handler struct {
	store    Storefront
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the view API over store.
func NewHandler(store Storefront, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	FIO      string `json:"fio" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type homeView struct {
	Authenticated bool          `json:"authenticated"`
	User          auth.User     `json:"user"`
	Products      []api.Product `json:"products"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
	CartCount     int           `json:"cart_count"`
	CartTotal     float64       `json:"cart_total"`
}

type cartView struct {
	Lines []state.CartLine `json:"lines"`
	Count int              `json:"count"`
	Total float64          `json:"total"`
}

type sessionView struct {
	Authenticated bool      `json:"authenticated"`
	User          auth.User `json:"user"`
}

// RegisterRoutes registers the view routes, each behind its route guard.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HealthCheck)

	r.With(h.guarded(guard.Home)).Get("/", h.Home)
	r.With(h.guarded(guard.Login)).Post("/login", h.Login)
	r.With(h.guarded(guard.Register)).Post("/register", h.Register)
	r.Post("/logout", h.Logout)

	r.Route("/cart", func(r chi.Router) {
		r.Use(h.guarded(guard.Cart))
		r.Get("/", h.Cart)
		r.Delete("/", h.ClearCart)
		r.Post("/{productID}", h.AddToCart)
		r.Put("/{lineID}", h.UpdateCartQuantity)
		r.Delete("/{lineID}", h.RemoveFromCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.guarded(guard.Orders))
		r.Get("/", h.Orders)
		r.Post("/", h.CreateOrder)
	})
}

func (h *Handler) guarded(name string) func(http.Handler) http.Handler {
	route, ok := guard.Lookup(name)
	if !ok {
		panic("unknown route " + name)
	}
	return guard.Middleware(route, h.store.IsAuthenticated)
}

// Home loads the catalog and returns it with the session summary.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.store.LoadProducts(r.Context())
	web.RespondJSON(w, h.logger, http.StatusOK, homeView{
		Authenticated: h.store.IsAuthenticated(),
		User:          h.store.User(),
		Products:      nonNil(h.store.Products()),
		Loading:       h.store.Loading(),
		Error:         h.store.Error(),
		CartCount:     h.store.CartCount(),
		CartTotal:     h.store.CartTotal(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.store.Login(r.Context(), req.Email, req.Password) {
		web.RespondError(w, h.logger, http.StatusUnauthorized, h.store.Error())
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.session())
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.store.Register(r.Context(), req.FIO, req.Email, req.Password); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, h.session())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Logout(r.Context()); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	if err := h.store.LoadCart(r.Context()); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	productID := api.ID(chi.URLParam(r, "productID"))
	if err := h.store.AddToCart(r.Context(), productID); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

// UpdateCartQuantity sets the quantity of a line from ?quantity=N. Zero removes the line.
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	quantity, ok := web.ParseValidateGte(r, w, h.logger, "quantity", 0)
	if !ok {
		return
	}
	lineID := api.ID(chi.URLParam(r, "lineID"))
	if err := h.store.UpdateCartQuantity(r.Context(), lineID, quantity); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	lineID := api.ID(chi.URLParam(r, "lineID"))
	if err := h.store.RemoveFromCart(r.Context(), lineID); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearCart(r.Context()); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	if err := h.store.LoadOrders(r.Context()); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, nonNil(h.store.Orders()))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.CreateOrder(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Order created", "order_id", order.ID)
	web.RespondJSON(w, h.logger, http.StatusCreated, order)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) session() sessionView {
	return sessionView{Authenticated: h.store.IsAuthenticated(), User: h.store.User()}
}

func (h *Handler) respondCart(w http.ResponseWriter, status int) {
	web.RespondJSON(w, h.logger, status, cartView{
		Lines: nonNil(h.store.Cart()),
		Count: h.store.CartCount(),
		Total: h.store.CartTotal(),
	})
}

// decode reads and validates a JSON body. It writes the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if fields := web.ValidationFields(err); fields != nil {
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			web.RespondValidationErrors(w, h.logger, fields)
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondStoreError maps action errors onto HTTP statuses.
func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *state.ValidationError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &validationErr) && len(validationErr.Fields) > 0:
		web.RespondValidationErrors(w, h.logger, validationErr.Fields)
	case errors.Is(err, sferrors.ErrUnauthenticated):
		web.RespondError(w, h.logger, http.StatusUnauthorized, err.Error())
	case errors.Is(err, sferrors.ErrValidation):
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, sferrors.ErrCartLineNotFound):
		web.RespondError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		h.logger.WarnContext(r.Context(), "API rejected the request", "status", apiErr.Status, "error", apiErr.Message)
		if len(apiErr.Details) > 0 {
			web.RespondJSON(w, h.logger, apiErr.Status, map[string]any{"error": apiErr.Message, "details": apiErr.Details})
			return
		}
		web.RespondError(w, h.logger, apiErr.Status, apiErr.Message)
	case errors.Is(err, sferrors.ErrNetwork), errors.Is(err, sferrors.ErrMalformedResponse):
		h.logger.ErrorContext(r.Context(), "Remote API unavailable", "error", err)
		web.RespondError(w, h.logger, http.StatusBadGateway, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
