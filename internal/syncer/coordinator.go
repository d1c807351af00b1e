package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/five82/voicesync/internal/pending"
	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/voicebrain"
)

// Notice texts shown to the user.
const (
	msgSavedOffline   = "You are offline. Recording saved locally and will sync when online."
	msgSavedForRetry  = "Upload failed. Saved locally for retry."
	msgNotSaved       = "Recording could not be saved."
	msgUploaded       = "Recording uploaded. Processing..."
	msgDrainDelivered = "Synced %d offline recording(s)."
	msgDrainFailed    = "%d offline recording(s) could not be uploaded yet."
)

// Queue is the durable store for undelivered recordings.
type Queue interface {
	Save(ctx context.Context, blob []byte, filename string) (string, error)
	ListAll(ctx context.Context) ([]pending.Upload, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Connectivity reports whether uploads should be attempted.
type Connectivity interface {
	Online() bool
}

// offlineMode is implemented by connectivity sources that know about the
// user's explicit offline switch.
type offlineMode interface {
	WorkOffline() bool
}

// Refresher reloads notes and usage after recordings were delivered.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

// Refresh calls f.
func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Uploader     voicebrain.Uploader
	Queue        Queue
	Connectivity Connectivity
	Refresher    Refresher
	Store        *state.Store
	Logger       *slog.Logger
	// OnState, when set, observes every state a captured recording enters.
	OnState func(State)
}

// Coordinator decides, for every finished recording, whether to upload it
// now or queue it, and drains the queue when connectivity returns.
type Coordinator struct {
	uploader  voicebrain.Uploader
	queue     Queue
	conn      Connectivity
	refresher Refresher
	store     *state.Store
	logger    *slog.Logger
	onState   func(State)

	draining atomic.Bool
	wg       sync.WaitGroup
}

// New builds a Coordinator. Uploader, Queue and Connectivity are required.
func New(deps Deps) (*Coordinator, error) {
	if deps.Uploader == nil || deps.Queue == nil || deps.Connectivity == nil {
		return nil, fmt.Errorf("syncer: uploader, queue and connectivity are required")
	}
	if deps.Store == nil {
		deps.Store = &state.Store{}
	}
	if deps.Refresher == nil {
		deps.Refresher = RefreshFunc(func(context.Context) error { return nil })
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		uploader:  deps.Uploader,
		queue:     deps.Queue,
		conn:      deps.Connectivity,
		refresher: deps.Refresher,
		store:     deps.Store,
		logger:    deps.Logger,
		onState:   deps.OnState,
	}, nil
}

// Capture handles one completed recording.
//
// Offline, the recording goes straight to the queue. Online, it is uploaded
// once; a quota rejection discards it and any other failure queues it.
func (c *Coordinator) Capture(ctx context.Context, blob []byte, filename string) Result {
	log := c.logger.With("filename", filename, "bytes", len(blob))
	log.Debug("recording captured")
	c.enter(Captured)

	if !c.conn.Online() {
		res := c.persist(ctx, blob, filename, msgSavedOffline)
		log.Info("recording queued while offline", "state", res.State, "pending_id", res.PendingID)
		return c.finish(res)
	}

	log.Debug("uploading recording")
	c.enter(Uploading)
	c.store.SetUploadProgress(true, 0)
	err := c.uploader.Upload(ctx, blob, filename, func(pct int) {
		c.store.SetUploadProgress(true, pct)
	})
	c.store.SetUploadProgress(false, 0)

	var quota *voicebrain.QuotaExceededError
	switch {
	case err == nil:
		log.Info("recording delivered")
		c.store.Notify(state.NoticeSuccess, msgUploaded)
		c.refresh(ctx)
		return c.finish(Result{State: Delivered})
	case errors.As(err, &quota):
		log.Warn("recording rejected", "error", err)
		c.store.Notify(state.NoticeError, quota.UserMessage())
		return c.finish(Result{State: Rejected, Err: err})
	default:
		log.Warn("upload failed, queueing recording", "error", err)
		res := c.persist(ctx, blob, filename, msgSavedForRetry)
		if res.Err == nil {
			res.Err = err
		}
		return c.finish(res)
	}
}

func (c *Coordinator) enter(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Coordinator) finish(res Result) Result {
	c.enter(res.State)
	return res
}

// persist queues blob, even when ctx is already cancelled.
func (c *Coordinator) persist(ctx context.Context, blob []byte, filename, notice string) Result {
	id, err := c.queue.Save(context.WithoutCancel(ctx), blob, filename)
	if err != nil {
		c.logger.Error("could not save recording", "error", err)
		c.store.Notify(state.NoticeError, msgNotSaved)
		return Result{State: Lost, Err: err}
	}
	c.store.Notify(state.NoticeWarning, notice)
	c.updatePending(ctx)
	return Result{State: QueuedOffline, PendingID: id}
}

// Drain uploads every queued recording once, oldest first. Only one drain
// runs at a time; a call made while another is running returns at once with
// Report.Skipped set. Nothing is attempted while offline.
func (c *Coordinator) Drain(ctx context.Context) Report {
	return c.drain(ctx, false)
}

// DrainNow is a drain the user asked for. It tries the network even when
// recent requests failed, but still honors offline mode.
func (c *Coordinator) DrainNow(ctx context.Context) Report {
	return c.drain(ctx, true)
}

func (c *Coordinator) drain(ctx context.Context, explicit bool) Report {
	// Checked before taking the flag so an offline no-op never swallows a
	// trigger that arrives as the API comes back.
	if !c.allowed(explicit) {
		return Report{Skipped: SkipOffline}
	}
	if !c.draining.CompareAndSwap(false, true) {
		c.logger.Debug("drain already running")
		return Report{Skipped: SkipBusy}
	}
	defer c.draining.Store(false)

	items, err := c.queue.ListAll(ctx)
	if err != nil {
		c.logger.Error("could not read pending uploads", "error", err)
		return Report{Err: err}
	}
	if len(items) == 0 {
		return Report{}
	}

	c.store.SetSyncing(true)
	defer c.store.SetSyncing(false)
	c.logger.Info("draining pending uploads", "count", len(items))

	var rep Report
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		rep.Attempted++
		log := c.logger.With("pending_id", item.ID, "filename", item.Filename)

		err := c.uploader.Upload(ctx, item.Blob, item.Filename, nil)
		if err != nil {
			rep.Failed++
			if voicebrain.IsQuotaExceeded(err) {
				rep.Rejected++
			}
			log.Warn("pending upload failed", "error", err)
			continue
		}
		if err := c.queue.Delete(ctx, item.ID); err != nil {
			// The server has it, but it stays queued and may be sent again.
			rep.Failed++
			log.Error("uploaded but could not remove from queue", "error", err)
			continue
		}
		rep.Delivered++
		log.Info("pending upload delivered")
	}

	c.updatePending(ctx)
	if rep.Delivered > 0 {
		c.store.Notify(state.NoticeSuccess, fmt.Sprintf(msgDrainDelivered, rep.Delivered))
	}
	if rep.Failed > 0 {
		c.store.Notify(state.NoticeWarning, fmt.Sprintf(msgDrainFailed, rep.Failed))
	}
	if rep.Attempted > 0 {
		c.refresh(ctx)
	}
	return rep
}

func (c *Coordinator) allowed(explicit bool) bool {
	if !explicit {
		return c.conn.Online()
	}
	if m, ok := c.conn.(offlineMode); ok {
		return !m.WorkOffline()
	}
	return c.conn.Online()
}

// Draining reports whether a drain is in progress.
func (c *Coordinator) Draining() bool {
	return c.draining.Load()
}

// Run drains once at startup and again whenever changes reports that the
// API came back online, until ctx is done or changes is closed. changes
// carries transitions only, as delivered by connectivity.Tracker.Subscribe.
func (c *Coordinator) Run(ctx context.Context, changes <-chan bool) {
	c.trigger(ctx, false)

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			if online {
				c.trigger(ctx, false)
			}
		}
	}
}

// TriggerDrain starts a user-requested drain in the background. It is a
// no-op while a drain is running.
func (c *Coordinator) TriggerDrain(ctx context.Context) {
	c.trigger(ctx, true)
}

func (c *Coordinator) trigger(ctx context.Context, explicit bool) {
	if c.draining.Load() {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.drain(ctx, explicit)
	}()
}

// Wait blocks until background drains have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// PendingCount returns the queue length and mirrors it into the store.
func (c *Coordinator) PendingCount(ctx context.Context) (int, error) {
	n, err := c.queue.Count(ctx)
	if err != nil {
		return 0, err
	}
	c.store.SetPending(n)
	return n, nil
}

func (c *Coordinator) updatePending(ctx context.Context) {
	if _, err := c.PendingCount(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("could not count pending uploads", "error", err)
	}
}

func (c *Coordinator) refresh(ctx context.Context) {
	if err := c.refresher.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after upload failed", "error", err)
	}
}
