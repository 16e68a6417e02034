package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// cli carries the global flags and the writers shared by every command.
type cli struct {
	configFile string
	envFile    string
	output     string

	stdout io.Writer
	stderr io.Writer
}

// redirectError reports that the route guard sent the user elsewhere.
type redirectError struct {
	from     string
	decision guard.Decision
}

func (e *redirectError) Error() string {
	reason := "requires a session"
	if e.decision.Redirect == guard.Home {
		reason = "is for guests only"
	}
	return fmt.Sprintf("%s %s: redirected to %s (%s)", e.from, reason, e.decision.Redirect, guard.PathOf(e.decision.Redirect))
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront client: browse products, manage the cart and place orders",
		Long: `storefront is a client of the storefront HTTP API.

The session token and cart are kept in a local key-value store (sqlite by
default) so they survive between runs. Every view command is checked by the
route guard first: cart and orders need a session, login and register need none.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "path to the dotenv file")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", outputText, "output format: text or json")
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.productsCmd(),
		c.cartCmd(),
		c.ordersCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) loadConfig() (*config.Config, *slog.Logger, error) {
	if c.output != outputText && c.output != outputJSON {
		return nil, nil, fmt.Errorf("unknown output format %q", c.output)
	}
	cfg, err := config.Load(c.configFile, c.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := bootstrap.NewLogger(c.stderr, cfg.Log)
	slog.SetDefault(logger)
	logger.Debug("Configuration loaded", "config", cfg.String())
	return cfg, logger, nil
}

// view wraps a command body with dependency setup and the route guard for
// route. An empty route skips the guard.
func (c *cli) view(route string, fn func(ctx context.Context, deps *app.Dependencies, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		cfg, logger, err := c.loadConfig()
		if err != nil {
			return err
		}
		deps, err := app.SetupDependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, deps.Close(context.WithoutCancel(ctx)))
		}()

		if route != "" {
			r, _ := guard.Lookup(route)
			if d := guard.Check(r.Meta, deps.Store.IsAuthenticated()); !d.Allow {
				return &redirectError{from: route, decision: d}
			}
		}
		return fn(ctx, deps, args)
	}
}

// print writes v as JSON, or calls text with a tabwriter in text mode.
func (c *cli) print(v any, text func(w io.Writer)) error {
	if c.output == outputJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}
