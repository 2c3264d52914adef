package cmd

import (
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/spf13/cobra"
)

const cliActor = "reviewctl"

func newIngestCmd() *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch and store new reviews for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant(cmd)
			if err != nil {
				return err
			}

			ctx := tenant.Background(cmd.Context(), tenantID, cliActor, domain.RoleOwner)
			res, err := appFrom(cmd).Ingestion.Ingest(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	ingestCmd.Flags().String("tenant", "", "business id")

	return ingestCmd
}
