package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
)

// UsageCmd prints the account's plan and transcription minutes.
func UsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show plan and minutes used this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				user, err := rt.Client.FetchUser(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch usage: %w", err)
				}
				out := cmd.OutOrStdout()
				if user.Email != "" {
					printf(out, "Account: %s\n", user.Email)
				}
				printf(out, "Plan: %s\n", user.TierLabel())
				printf(out, "Minutes used: %s\n", humanize.Comma(int64(user.MinutesUsed())))
				if user.BillingCycleStart != nil {
					printf(out, "Cycle started: %s (%s)\n", user.BillingCycleStart.Format("2006-01-02"), humanize.Time(*user.BillingCycleStart))
				}
				return nil
			})
		},
	}
}
