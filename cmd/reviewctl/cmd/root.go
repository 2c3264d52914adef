// Package cmd implements reviewctl, the operator CLI working directly
// against the configured token and review stores.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/internal/app"
	"github.com/pilab-dev/reviewdesk/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const appName = "reviewctl"

type appKey struct{}

// NewRootCmd builds the command tree. Each invocation gets its own flags,
// which keeps repeated executions in tests independent.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "reviewctl manages connected review accounts and ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := log.NewZerologAdapterWithWriter(cmd.ErrOrStderr(), level)

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a := appFrom(cmd); a != nil {
				return a.Close(cmd.Context())
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./reviewdesk.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringP("output", "o", formatYAML, "output format: yaml or json")

	root.AddCommand(newTokensCmd(), newIngestCmd(), newReviewsCmd())
	closeOnError(root)
	return root
}

// closeOnError releases the app when a command fails. Cobra skips the
// post-run hooks after a RunE error.
func closeOnError(c *cobra.Command) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				if a := appFrom(cmd); a != nil {
					_ = a.Close(cmd.Context())
				}
			}
			return err
		}
	}
	for _, sub := range c.Commands() {
		closeOnError(sub)
	}
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func appFrom(cmd *cobra.Command) *app.App {
	a, _ := cmd.Context().Value(appKey{}).(*app.App)
	return a
}

func requireTenant(cmd *cobra.Command) (string, error) {
	tenantID, _ := cmd.Flags().GetString("tenant")
	if tenantID == "" {
		return "", fmt.Errorf("--tenant is required")
	}
	return tenantID, nil
}
