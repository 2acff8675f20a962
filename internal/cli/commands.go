package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sagargautam500/storefront/internal/cartsync"
	"github.com/sagargautam500/storefront/pkg/cartclient"
	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				return printCart(a.out, a.engine, opts.JSON)
			})
		},
	}
}

type addOptions struct {
	quantity int
	size     string
	color    string
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	add := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Example: `  storefront add 7b0c2f0e-2d4b-4a53-9a0e-1f7f4c1d9a01 --size M --color Black
  storefront add 7b0c2f0e-2d4b-4a53-9a0e-1f7f4c1d9a03 -q 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runAdd(ctx, a, args[0], add)
			})
		},
	}
	cmd.Flags().IntVarP(&add.quantity, "quantity", "q", 1, "quantity to add")
	cmd.Flags().StringVar(&add.size, "size", "", "size variant")
	cmd.Flags().StringVar(&add.color, "color", "", "color variant")
	return cmd
}

// runAdd loads the catalog snapshot the guest cart needs. Signed in, a
// catalog miss is left for the server to reject.
func runAdd(ctx context.Context, a *app, productID string, add *addOptions) error {
	if add.quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	variant := cartsync.NewVariant(add.size, add.color)

	var snapshot *cartsync.Snapshot
	product, err := a.client.Product(ctx, productID)
	switch {
	case err == nil:
		snapshot = product.Snapshot(variant)
	case a.engine.Mode() == cartsync.ModeAnonymous:
		return describe(err)
	}

	_, err = a.engine.AddItem(ctx, cartsync.AddItemInput{
		ProductID: productID,
		Quantity:  add.quantity,
		Variant:   variant,
		Snapshot:  snapshot,
	})
	return err
}

func newUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <line-id> <quantity>",
		Short: "Set a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cartsync.ParseLineID(args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.engine.UpdateQuantity(ctx, id, qty)
				return nil
			})
		},
	}
}

func newRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cartsync.ParseLineID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.engine.RemoveItem(ctx, id)
				return nil
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the active cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.engine.ClearCart(ctx)
				return nil
			})
		},
	}
}

func newProductCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "product <product-id>",
		Short: "Show a catalog product and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.client.Product(ctx, args[0])
				if err != nil {
					return describe(err)
				}
				printProduct(a.out, p)
				return nil
			})
		},
	}
}

func newCatalogCommand(opts *RootOptions) *cobra.Command {
	q := cartclient.ListQuery{}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog products, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				page, err := a.client.Products(ctx, q)
				if err != nil {
					return describe(err)
				}
				return printCatalog(a.out, page, opts.JSON)
			})
		},
	}
	cmd.Flags().StringVar(&q.Category, "category", "", "only list this category")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&q.Cursor, "cursor", "", "cursor printed by the previous page")
	return cmd
}

type credentialOptions struct {
	email    string
	password string
	name     string
}

func newLoginCommand(opts *RootOptions) *cobra.Command {
	creds := &credentialOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and merge the local cart into your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s, err := a.client.Login(ctx, creds.email, creds.password)
				if err != nil {
					return describe(err)
				}
				a.reportMerge(a.engine.Login(ctx, s.UserID))
				fmt.Fprintf(a.out, "signed in as %s\n", s.Email)
				return nil
			})
		},
	}
	credentialFlags(cmd, creds, false)
	return cmd
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	creds := &credentialOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account, sign in and merge the local cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s, err := a.client.Register(ctx, creds.email, creds.password, creds.name)
				if err != nil {
					return describe(err)
				}
				a.reportMerge(a.engine.Login(ctx, s.UserID))
				fmt.Fprintf(a.out, "registered %s\n", s.Email)
				return nil
			})
		},
	}
	credentialFlags(cmd, creds, true)
	return cmd
}

func credentialFlags(cmd *cobra.Command, creds *credentialOptions, withName bool) {
	cmd.Flags().StringVar(&creds.email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	if withName {
		cmd.Flags().StringVar(&creds.name, "name", "", "display name")
		_ = cmd.MarkFlagRequired("name")
	}
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; the server cart stays with your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				err := a.client.Logout(ctx)
				a.engine.Logout(ctx)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintln(a.out, "signed out")
				return nil
			})
		},
	}
}

// describe turns a typed API error into the message shown to the user.
func describe(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	if pkgerrors.IsRetryable(err) {
		return fmt.Errorf("storefront is unavailable, try again: %w", err)
	}
	if msg := typed.Message(); msg != "" {
		return errors.New(msg)
	}
	return err
}
