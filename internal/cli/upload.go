package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/voicesync/internal/app"
	"github.com/five82/voicesync/internal/capture"
	"github.com/five82/voicesync/internal/syncer"
)

// UploadCmd sends existing audio files as finished recordings.
func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload audio files",
		Long:  "Uploads each file as a finished recording. Files are queued when the API is unreachable.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				failed := 0
				for _, path := range args {
					rec, err := capture.FromFile(path)
					if err != nil {
						printf(out, "%s %v\n", failMark, err)
						failed++
						continue
					}
					res, _ := rt.Capture(ctx, rec)
					if err := reportCapture(out, path, len(rec.Blob), res); err != nil {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files not delivered or queued", failed, len(args))
				}
				return nil
			})
		},
	}
}

// reportCapture prints one capture outcome. Rejected and lost recordings
// return an error.
func reportCapture(w io.Writer, name string, size int, res syncer.Result) error {
	switch res.State {
	case syncer.Delivered:
		printf(w, "%s Uploaded %s (%s)\n", okMark, name, humanize.Bytes(uint64(size)))
		return nil
	case syncer.QueuedOffline:
		printf(w, "%s Saved %s offline, it will upload when the API is reachable\n", warnMark, name)
		if res.PendingID != "" {
			printf(w, "  Pending: %s\n", res.PendingID)
		}
		return nil
	case syncer.Rejected:
		printf(w, "%s Rejected %s: %v\n", failMark, name, res.Err)
	default:
		printf(w, "%s Could not keep %s: %v\n", failMark, name, res.Err)
	}
	if res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("%s: %s", name, res.State)
}
