package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
)

// RecordCmd records from the configured command until Enter or Ctrl-C and
// hands the result to the sync coordinator.
func RecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice note",
		Long: `Runs the configured recorder until Enter or Ctrl-C, then uploads the
recording. When the API is unreachable the recording is queued.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				return runRecord(ctx, cmd, rt)
			})
		},
	}
	return cmd
}

func runRecord(ctx context.Context, cmd *cobra.Command, rt *app.Runtime) error {
	out := cmd.OutOrStdout()
	rec, err := rt.NewRecorder()
	if err != nil {
		return err
	}
	// Ctrl-C stops the recording; it must not kill the recorder first.
	if err := rec.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	printf(out, "%s Recording, press Enter to stop\n", color.New(color.FgRed).Sprint("●"))

	waitForStop(ctx, cmd.InOrStdin(), func() {
		printf(out, "\r  %s  %s ", formatElapsed(rec.Elapsed()), humanize.Bytes(uint64(rec.Captured())))
	})
	printf(out, "\n")

	recording, err := rec.Stop()
	if err != nil {
		return err
	}
	res, ev := rt.Capture(rt.SyncContext(), recording)
	if err := rec.Complete(ev); err != nil {
		rt.Logger.Warn("capture phase", "error", err)
	}
	return reportCapture(out, recording.Filename, len(recording.Blob), res)
}

// waitForStop returns after a line on in or when ctx is done. tick runs every
// second meanwhile.
func waitForStop(ctx context.Context, in io.Reader, tick func()) {
	line := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(line)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-line:
			return
		case <-ticker.C:
			tick()
		}
	}
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
