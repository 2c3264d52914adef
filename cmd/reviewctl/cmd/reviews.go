package cmd

import (
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/reviews"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/spf13/cobra"
)

func newReviewsCmd() *cobra.Command {
	reviewsCmd := &cobra.Command{
		Use:   "reviews",
		Short: "Browse and approve stored reviews",
	}
	reviewsCmd.PersistentFlags().String("tenant", "", "business id")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of a tenant's reviews",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant(cmd)
			if err != nil {
				return err
			}

			q := reviews.DefaultQuery()
			flags := cmd.Flags()
			q.Sentiment, _ = flags.GetString("sentiment")
			q.SortBy, _ = flags.GetString("sort-by")
			q.SortDirection, _ = flags.GetString("direction")
			q.Page, _ = flags.GetInt("page")
			q.PageSize, _ = flags.GetInt("page-size")
			if flags.Changed("approved") {
				approved, _ := flags.GetBool("approved")
				q.IsApproved = &approved
			}

			ctx := tenant.Background(cmd.Context(), tenantID, cliActor, domain.RoleViewer)
			page, err := appFrom(cmd).Approvals.List(ctx, q)
			if err != nil {
				return err
			}
			return printResult(cmd, page)
		},
	}
	listCmd.Flags().String("sentiment", "", "positive, neutral or negative")
	listCmd.Flags().Bool("approved", false, "only approved (true) or unapproved (false) reviews")
	listCmd.Flags().String("sort-by", reviews.SortSubmittedAt, "Rating, SubmittedAt or ApprovedAt")
	listCmd.Flags().String("direction", reviews.SortDesc, "asc or desc")
	listCmd.Flags().Int("page", reviews.DefaultPage, "page number")
	listCmd.Flags().Int("page-size", reviews.DefaultPageSize, "reviews per page")

	respondCmd := &cobra.Command{
		Use:   "respond",
		Short: "Approve the final response of a review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant(cmd)
			if err != nil {
				return err
			}
			reviewID, _ := cmd.Flags().GetString("review")
			text, _ := cmd.Flags().GetString("response")

			ctx := tenant.Background(cmd.Context(), tenantID, cliActor, domain.RoleManager)
			review, err := appFrom(cmd).Approvals.Respond(ctx, reviewID, text)
			if err != nil {
				return err
			}
			return printResult(cmd, review)
		},
	}
	respondCmd.Flags().String("review", "", "provider review id")
	respondCmd.Flags().String("response", "", "final response text")

	reviewsCmd.AddCommand(listCmd, respondCmd)
	return reviewsCmd
}
