// Package app wires the storefront client from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/kvstore"
	"github.com/abgdnv/storefront/internal/state"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/messaging"
	sfnats "github.com/abgdnv/storefront/pkg/nats"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger
	KV     kvstore.Store
	Client *api.Client
	Store  *state.Store

	// Metrics serves the Prometheus registry. Nil unless telemetry.metrics is set.
	Metrics http.Handler

	closers []func(ctx context.Context) error
}

// SetupDependencies opens storage, connects the optional publisher and restores the session.
// Close must be called on the result even when a later step of the caller fails.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deps *Dependencies, err error) {
	deps = &Dependencies{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			if closeErr := deps.Close(context.WithoutCancel(ctx)); closeErr != nil {
				logger.Error("Failed to release resources after setup error", "error", closeErr)
			}
			deps = nil
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, config.ServiceName, cfg.Telemetry, logger)
	if err != nil {
		return deps, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	deps.closers = append(deps.closers, shutdownTelemetry)

	if cfg.Telemetry.Metrics {
		handler, shutdownMetrics, err := telemetry.SetupMetrics(config.ServiceName)
		if err != nil {
			return deps, fmt.Errorf("failed to set up metrics: %w", err)
		}
		deps.Metrics = handler
		deps.closers = append(deps.closers, shutdownMetrics)
	}

	deps.KV, err = kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		return deps, err
	}
	deps.closers = append(deps.closers, func(context.Context) error { return deps.KV.Close() })

	deps.Client, err = NewAPIClient(cfg, logger)
	if err != nil {
		return deps, err
	}

	publisher, err := deps.newPublisher(ctx)
	if err != nil {
		return deps, err
	}

	deps.Store, err = state.New(ctx, deps.Client, deps.KV,
		state.WithLogger(logger),
		state.WithPublisher(publisher),
		state.WithClearCartOnLogout(cfg.Session.ClearCartOnLogout),
	)
	if err != nil {
		return deps, err
	}
	return deps, nil
}

// NewAPIClient builds the API client. The transport gains a circuit breaker
// and tracing when they are configured.
func NewAPIClient(cfg *config.Config, logger *slog.Logger) (*api.Client, error) {
	transport := http.DefaultTransport
	if cfg.CircuitBreaker.Enabled {
		transport = api.NewBreakerTransport(transport, cfg.CircuitBreaker, logger)
	}
	opts := []api.Option{
		api.WithTransport(transport),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	}
	if cfg.Telemetry.Enabled() {
		opts = append(opts, api.WithTracing())
	}
	return api.NewClient(cfg.API.BaseURL, opts...)
}

func (d *Dependencies) newPublisher(ctx context.Context) (messaging.Publisher, error) {
	if !d.Config.Nats.Enabled() {
		return messaging.NoopPublisher{}, nil
	}
	nc, js, err := sfnats.Connect(ctx, d.Config.Nats, d.Logger)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func(context.Context) error { return nc.Drain() })
	d.Logger.Info("Publishing order events to NATS", "url", d.Config.Nats.Url)
	return sfnats.NewJetStreamPublisher(js), nil
}

// Close releases everything SetupDependencies acquired, newest first.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// SetupHttpHandler builds the view API router.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Store, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates the HTTP server of the view API.
func SetupHttpServer(deps *Dependencies) *http.Server {
	return server.NewHTTPServer(deps.Config.HTTPServer, SetupHttpHandler(deps))
}

// SetupPprofServer returns the profiling server, or nil when pprof is disabled.
// Handlers come from the net/http/pprof registrations on http.DefaultServeMux.
func SetupPprofServer(deps *Dependencies) *http.Server {
	if !deps.Config.PProf.Enabled {
		return nil
	}
	return &http.Server{
		Addr:              deps.Config.PProf.Addr,
		ReadHeaderTimeout: deps.Config.HTTPServer.Timeout.ReadHeader,
	}
}
