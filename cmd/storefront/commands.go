package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/guard"
	"github.com/abgdnv/storefront/internal/state"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session token",
		Args:  cobra.NoArgs,
		RunE: c.view(guard.Login, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
			if !deps.Store.Login(ctx, email, password) {
				return fmt.Errorf("login failed: %s", deps.Store.Error())
			}
			return c.printSession(deps.Store)
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var fio, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: c.view(guard.Register, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
			if err := deps.Store.Register(ctx, fio, email, password); err != nil {
				c.printFieldErrors(err)
				return fmt.Errorf("registration failed: %w", err)
			}
			return c.printSession(deps.Store)
		}),
	}
	cmd.Flags().StringVar(&fio, "fio", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: c.view("", func(ctx context.Context, deps *app.Dependencies, _ []string) error {
			if err := deps.Store.Logout(ctx); err != nil {
				return err
			}
			return c.printSession(deps.Store)
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: c.view("", func(_ context.Context, deps *app.Dependencies, _ []string) error {
			return c.printSession(deps.Store)
		}),
	}
}

func (c *cli) productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: c.view(guard.Home, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
			if !deps.Store.LoadProducts(ctx) {
				return fmt.Errorf("failed to load products: %s", deps.Store.Error())
			}
			products := deps.Store.Products()
			return c.print(products, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE")
				for _, p := range products {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\n", p.ID, p.Name, float64(p.Price))
				}
			})
		}),
	}
}

func (c *cli) cartCmd() *cobra.Command {
	show := c.view(guard.Cart, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
		if err := deps.Store.LoadCart(ctx); err != nil {
			return err
		}
		return c.printCart(deps.Store)
	})
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE:  show,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: c.view(guard.Cart, func(ctx context.Context, deps *app.Dependencies, args []string) error {
				if err := deps.Store.AddToCart(ctx, api.ID(args[0])); err != nil {
					return err
				}
				return c.printCart(deps.Store)
			}),
		},
		&cobra.Command{
			Use:   "remove <line-id>",
			Short: "Remove a line with all its units",
			Args:  cobra.ExactArgs(1),
			RunE: c.view(guard.Cart, func(ctx context.Context, deps *app.Dependencies, args []string) error {
				if err := deps.Store.RemoveFromCart(ctx, api.ID(args[0])); err != nil {
					return err
				}
				return c.printCart(deps.Store)
			}),
		},
		&cobra.Command{
			Use:   "set <line-id> <quantity>",
			Short: "Set the quantity of a line, 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: c.view(guard.Cart, func(ctx context.Context, deps *app.Dependencies, args []string) error {
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				if err := deps.Store.UpdateCartQuantity(ctx, api.ID(args[0]), quantity); err != nil {
					return err
				}
				return c.printCart(deps.Store)
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the local cart",
			Args:  cobra.NoArgs,
			RunE: c.view(guard.Cart, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
				if err := deps.Store.ClearCart(ctx); err != nil {
					return err
				}
				return c.printCart(deps.Store)
			}),
		},
	)
	return cmd
}

func (c *cli) ordersCmd() *cobra.Command {
	list := c.view(guard.Orders, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
		if err := deps.Store.LoadOrders(ctx); err != nil {
			return err
		}
		orders := deps.Store.Orders()
		return c.print(orders, func(w io.Writer) {
			_, _ = fmt.Fprintln(w, "ORDER\tITEMS\tTOTAL")
			for _, o := range orders {
				items := len(o.Products)
				for _, l := range o.Lines {
					items += int(l.Quantity)
				}
				_, _ = fmt.Fprintf(w, "%d\t%d\t%.2f\n", o.ID, items, float64(o.Total))
			}
		})
	})
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List placed orders",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List placed orders",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "create",
			Short: "Check out the cart",
			Args:  cobra.NoArgs,
			RunE: c.view(guard.Orders, func(ctx context.Context, deps *app.Dependencies, _ []string) error {
				order, err := deps.Store.CreateOrder(ctx)
				if err != nil {
					return err
				}
				return c.print(order, func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "Order %d placed\t%s\n", order.ID, order.Message)
				})
			}),
		},
	)
	return cmd
}

type sessionOutput struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Cart  int    `json:"cart_count"`
}

func (c *cli) printSession(s *state.Store) error {
	user := s.User()
	out := sessionOutput{State: s.AuthState().String(), Email: user.Email, Name: user.Name, Cart: s.CartCount()}
	return c.print(out, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "state:\t%s\n", out.State)
		if out.Email != "" {
			_, _ = fmt.Fprintf(w, "email:\t%s\n", out.Email)
		}
		if out.Name != "" {
			_, _ = fmt.Fprintf(w, "name:\t%s\n", out.Name)
		}
		_, _ = fmt.Fprintf(w, "cart items:\t%d\n", out.Cart)
	})
}

type cartOutput struct {
	Lines []state.CartLine `json:"lines"`
	Count int              `json:"count"`
	Total float64          `json:"total"`
}

func (c *cli) printCart(s *state.Store) error {
	out := cartOutput{Lines: s.Cart(), Count: s.CartCount(), Total: s.CartTotal()}
	if out.Lines == nil {
		out.Lines = []state.CartLine{}
	}
	return c.print(out, func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "LINE\tPRODUCT\tNAME\tQTY\tPRICE\tSUBTOTAL")
		for _, l := range out.Lines {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\n",
				l.ID, l.ProductID, l.Name, l.Units(), float64(l.Price), float64(l.Price)*float64(l.Units()))
		}
		_, _ = fmt.Fprintf(w, "\t\t\t%d\t\t%.2f\n", out.Count, out.Total)
	})
}

// printFieldErrors lists per-field messages from local validation or the API.
func (c *cli) printFieldErrors(err error) {
	fields := map[string][]string{}
	var vErr *state.ValidationError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &vErr):
		for f, rule := range vErr.Fields {
			fields[f] = []string{"failed on rule: " + rule}
		}
	case errors.As(err, &apiErr):
		fields = apiErr.Details
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		for _, msg := range fields[f] {
			_, _ = fmt.Fprintf(c.stderr, "  %s: %s\n", f, msg)
		}
	}
}
