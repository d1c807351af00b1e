package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
)

// SyncCmd drains the offline queue once.
func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload queued recordings now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				report := rt.Sync(ctx)
				if report.Skipped != "" {
					printf(out, "%s Sync skipped: %s\n", warnMark, report.Skipped)
					return nil
				}
				if report.Err != nil {
					return fmt.Errorf("sync: %w", report.Err)
				}
				if report.Attempted == 0 {
					printf(out, "Nothing to sync\n")
					return nil
				}
				printf(out, "%s Delivered %d of %d\n", okMark, report.Delivered, report.Attempted)
				if report.Failed > 0 {
					printf(out, "%s %d failed (%d over quota) and stay queued\n", failMark, report.Failed, report.Rejected)
				}
				return nil
			})
		},
	}
}

// PendingCmd lists recordings waiting in the offline queue.
func PendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List queued recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				entries, err := rt.Pending.Entries(ctx)
				if err != nil {
					return fmt.Errorf("failed to list pending uploads: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					printf(out, "No pending uploads\n")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tFILE\tSIZE\tQUEUED")
				fmt.Fprintln(w, "--\t----\t----\t------")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Filename, humanize.Bytes(uint64(e.Size)), humanize.Time(e.CreatedAt))
				}
				return w.Flush()
			})
		},
	}
}
