// Package cli implements the storefront command line client.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagargautam500/storefront/pkg/config"
)

// errMutationFailed is returned after the engine reported a failed
// mutation; the notification already told the user why.
var errMutationFailed = errors.New("cart operation failed")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	APIURL     string
	GuestStore string
	TokenFile  string
	Verbose    bool
	JSON       bool

	out io.Writer
	err io.Writer
}

func (o *RootOptions) apply(cfg *config.ClientConfig) {
	if o.APIURL != "" {
		cfg.APIBaseURL = o.APIURL
	}
	if o.GuestStore != "" {
		cfg.GuestStore = o.GuestStore
	}
	if o.TokenFile != "" {
		cfg.TokenFile = o.TokenFile
	}
}

func (o *RootOptions) outWriter() io.Writer {
	if o.out != nil {
		return o.out
	}
	return os.Stdout
}

func (o *RootOptions) errWriter() io.Writer {
	if o.err != nil {
		return o.err
	}
	return os.Stderr
}

// NewRootCommand creates the storefront command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront cart client",
		Long:          "Manage a storefront cart. Signed out, the cart lives on this machine; signing in merges it into your account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "storefront API base URL (overrides STOREFRONT_CLIENT_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.GuestStore, "guest-store", "", "path of the local guest cart database")
	cmd.PersistentFlags().StringVar(&opts.TokenFile, "token-file", "", "path of the saved session")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print the cart as JSON")

	cmd.AddCommand(
		newShowCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newRemoveCommand(opts),
		newClearCommand(opts),
		newProductCommand(opts),
		newCatalogCommand(opts),
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
	)
	return cmd
}

// withApp builds the app, resumes any saved session and runs fn.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	opts.out = cmd.OutOrStdout()
	opts.err = cmd.ErrOrStderr()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.resume(ctx); err != nil {
		return err
	}
	a.failed = false
	err = fn(ctx, a)
	if opts.Verbose {
		a.logMetrics(ctx)
	}
	if err != nil {
		return err
	}
	if a.failed {
		return errMutationFailed
	}
	return nil
}
