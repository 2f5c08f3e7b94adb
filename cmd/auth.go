package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/appointments/internal/config"
	"github.com/teemow/appointments/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		listenAddr string
		timeout    time.Duration
		noBrowser  bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar and store the credential",
		Long: `Run the OAuth2 consent flow once and store the resulting credential in the
token file used by "appointments serve".

A listener on the loopback interface receives the authorization code. The
consent URL is printed and, unless --no-browser is set, opened in the
default browser. An already valid credential is kept unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}

			authorizer := &google.LocalServerAuthorizer{
				ListenAddr: listenAddr,
				Timeout:    timeout,
				Out:        cmd.ErrOrStderr(),
				Logger:     logger,
			}
			if noBrowser {
				authorizer.OpenURL = func(string) error { return nil }
			}

			return runAuth(cmd.Context(), cmd.OutOrStdout(), cfg, authorizer, force, logger)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", "127.0.0.1:0", "Loopback address receiving the OAuth2 redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", google.DefaultAuthTimeout, "How long to wait for consent")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Only print the consent URL")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing credential")

	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthKeygenCmd())

	return cmd
}

// runAuth obtains a credential and stores it. With force the consent flow
// runs even when a usable credential exists; that credential is replaced
// only after the new one has been granted.
func runAuth(ctx context.Context, out io.Writer, cfg config.Config, authorizer google.Authorizer, force bool, logger *slog.Logger) error {
	manager, store, err := newCredentialManager(cfg, authorizer, logger, nil)
	if err != nil {
		return err
	}

	var cred *google.Credential
	if force {
		cred, err = manager.Reauthorize(ctx)
	} else {
		cred, err = manager.Acquire(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Credential stored in %s (expires %s", store.Path(), cred.Expiry.Format(time.RFC3339))
	if store.Encrypted() {
		fmt.Fprint(out, ", encrypted")
	}
	fmt.Fprintln(out, ")")
	return nil
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a usable credential is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}
			manager, store, err := newCredentialManager(cfg, nil, logger, nil)
			if err != nil {
				return err
			}

			st := manager.Status(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token file:      %s\n", store.Path())
			fmt.Fprintf(out, "encrypted:       %t\n", store.Encrypted())
			fmt.Fprintf(out, "stored:          %t\n", st.Stored)
			fmt.Fprintf(out, "valid:           %t\n", st.Valid)
			fmt.Fprintf(out, "refreshable:     %t\n", st.Refreshable)
			fmt.Fprintf(out, "seed configured: %t\n", st.SeedConfigured)
			if st.StoreError != nil {
				fmt.Fprintf(out, "store error:     %v\n", st.StoreError)
			}
			if !st.Ready() {
				return fmt.Errorf("no usable credential, run \"appointments auth\"")
			}
			return nil
		},
	}
}

func newAuthKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key for CREDENTIAL_ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := google.GenerateEncryptionKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
