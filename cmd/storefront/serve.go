package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront views as a local JSON API",
		Long: `serve exposes the views on a local HTTP server. Guarded routes answer
303 See Other with the redirect target in the Location header.`,
		Args: cobra.NoArgs,
		RunE: c.view("", func(ctx context.Context, deps *app.Dependencies, _ []string) error {
			return serve(ctx, deps)
		}),
	}
}

// serve runs the view API, and pprof when enabled, until ctx is cancelled.
func serve(ctx context.Context, deps *app.Dependencies) error {
	logger := deps.Logger
	httpServer := app.SetupHttpServer(deps)
	pprofServer := app.SetupPprofServer(deps)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := deps.Config.Shutdown.Context(ctx)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if pprofServer != nil {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := deps.Config.Shutdown.Context(ctx)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
