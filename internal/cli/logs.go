package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/config"
	"github.com/five82/voicesync/internal/logtail"
)

// LogsCmd prints the tail of the log file.
func LogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			lines, _ := cmd.Flags().GetInt("lines")
			level, _ := cmd.Flags().GetString("level")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.LogPath()
			tail, err := logtail.Read(path, lines)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			tail = logtail.MinLevel(tail, level)
			out := cmd.OutOrStdout()
			if len(tail) == 0 {
				printf(out, "No log lines in %s\n", path)
				return nil
			}
			printf(out, "%s\n", strings.Join(logtail.FormatLines(tail, logtail.DefaultPalette()), "\n"))
			return nil
		},
	}
	cmd.Flags().IntP("lines", "n", 200, "Number of lines")
	cmd.Flags().String("level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
