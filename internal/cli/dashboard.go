package cli

import (
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
)

// DashboardCmd opens the interactive dashboard.
func DashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd)
		},
	}
}

func runDashboard(cmd *cobra.Command) error {
	return app.Run(commandContext(cmd), runtimeOptions(cmd))
}
