package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
)

// NewRootCmd builds the voicesync command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "voicesync",
		Short: "VoiceBrain client with an offline upload queue",
		Long: `voicesync records voice notes and uploads them to VoiceBrain.
Recordings made while the API is unreachable are kept locally and sent
once it is back.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "Config file (default ~/.config/voicesync/config.toml)")
	root.PersistentFlags().String("prefs", "", "Preferences file (default ~/.config/voicesync/prefs.toml)")
	root.PersistentFlags().Bool("offline", false, "Work offline for this run")

	root.AddCommand(DashboardCmd())
	root.AddCommand(RecordCmd())
	root.AddCommand(UploadCmd())
	root.AddCommand(SyncCmd())
	root.AddCommand(PendingCmd())
	root.AddCommand(NotesCmd())
	root.AddCommand(UsageCmd())
	root.AddCommand(LogsCmd())
	return root
}

func runtimeOptions(cmd *cobra.Command) app.Options {
	configPath, _ := cmd.Flags().GetString("config")
	prefsPath, _ := cmd.Flags().GetString("prefs")
	offline, _ := cmd.Flags().GetBool("offline")
	return app.Options{ConfigPath: configPath, PrefsPath: prefsPath, Offline: offline}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withRuntime opens the runtime, runs fn and closes it. Uploads started by fn
// are allowed to finish.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error) (err error) {
	ctx := commandContext(cmd)
	rt, err := app.Open(ctx, runtimeOptions(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(app.Closing); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, rt)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	failMark = color.New(color.FgRed).Sprint("✗")
)

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
