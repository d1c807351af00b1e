package app

import (
	"context"
	"errors"

	"github.com/five82/voicesync/internal/ui"
)

// Run opens the runtime and shows the dashboard until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	rt.Start(ctx)

	uiErr := ui.Run(ctx, ui.Options{
		Backend:   rt,
		Store:     rt.Store,
		Prefs:     rt.Prefs,
		ExportDir: rt.Config.ExportDir,
		LogPath:   rt.Config.LogPath(),
		PollTick:  ui.DefaultUIInterval,
	})
	return errors.Join(uiErr, rt.Close(Quitting))
}
