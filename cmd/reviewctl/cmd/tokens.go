package cmd

import (
	"fmt"

	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:     "tokens",
		Short:   "Inspect and manage stored OAuth tokens",
		Aliases: []string{"token"},
	}

	expiredCmd := &cobra.Command{
		Use:   "expired",
		Short: "List tokens that are past expiry and not revoked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := appFrom(cmd).Google.ExpiredTokens(cmd.Context())
			if err != nil {
				return err
			}
			if tokens == nil {
				tokens = []*domain.OAuthToken{}
			}
			return printResult(cmd, tokens)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the connection status of a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant(cmd)
			if err != nil {
				return err
			}
			return printResult(cmd, appFrom(cmd).Google.Status(cmd.Context(), tenantID))
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant's token without revoking it at the provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant(cmd)
			if err != nil {
				return err
			}
			deleted, err := appFrom(cmd).Google.Delete(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("no token stored for tenant %s", tenantID)
			}
			return printResult(cmd, map[string]any{"deleted": true, "tenant": tenantID})
		},
	}

	for _, c := range []*cobra.Command{statusCmd, deleteCmd} {
		c.Flags().String("tenant", "", "business id")
	}

	tokensCmd.AddCommand(expiredCmd, statusCmd, deleteCmd)
	return tokensCmd
}
