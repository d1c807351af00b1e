package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/five82/voicesync/internal/capture"
	"github.com/five82/voicesync/internal/config"
	"github.com/five82/voicesync/internal/connectivity"
	"github.com/five82/voicesync/internal/logging"
	"github.com/five82/voicesync/internal/pending"
	"github.com/five82/voicesync/internal/poll"
	"github.com/five82/voicesync/internal/prefs"
	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/syncer"
	"github.com/five82/voicesync/internal/voicebrain"
)

// Options configure a Runtime.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/voicesync/prefs.toml
	// Offline forces offline mode for this session without saving it.
	Offline bool
	// Transport is the base HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
	// Logger overrides the configured log file.
	Logger *slog.Logger
}

// Lifecycle tells shutdown whether the process is exiting.
type Lifecycle int

const (
	// Closing ends the current surface; in-flight uploads may finish first.
	Closing Lifecycle = iota
	// Quitting exits the process; in-flight uploads are abandoned and stay
	// queued.
	Quitting
)

func (l Lifecycle) String() string {
	if l == Quitting {
		return "quitting"
	}
	return "closing"
}

// Runtime owns every long-lived component.
type Runtime struct {
	Config      config.Config
	Prefs       prefs.Prefs
	PrefsPath   string
	Logger      *slog.Logger
	Client      *voicebrain.Client
	Tracker     *connectivity.Tracker
	Pending     *pending.Store
	Store       *state.Store
	Poller      *poll.Poller
	Coordinator *syncer.Coordinator

	logCloser io.Closer

	mu          sync.Mutex
	cancelLoops context.CancelFunc
	cancelSync  context.CancelFunc
	syncCtx     context.Context
	wg          sync.WaitGroup
	started     bool
	closed      bool
}

// Open loads configuration and builds the runtime. Nothing runs in the
// background until Start.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	rt := &Runtime{Config: cfg, Prefs: userPrefs, PrefsPath: prefsPath, Logger: opts.Logger}
	if rt.Logger == nil {
		logger, closer, err := logging.OpenFile(cfg.LogPath(), cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		rt.Logger, rt.logCloser = logger, closer
	}

	rt.Tracker = connectivity.New(cfg.Network.OfflineAfterFailures, logging.Component(rt.Logger, "connectivity"))
	if opts.Offline || userPrefs.WorkOffline {
		rt.Tracker.SetWorkOffline(true)
	}

	rt.Client, err = voicebrain.NewClient(cfg.APIURL, cfg.Token,
		voicebrain.WithTransport(rt.Tracker.Transport(opts.Transport)),
		voicebrain.WithTimeouts(cfg.Network.RequestTimeout, cfg.Network.UploadTimeout),
	)
	if err != nil {
		rt.closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	rt.Pending, err = pending.Open(ctx, cfg.PendingDBPath())
	if err != nil {
		rt.closeLog()
		return nil, err
	}

	rt.Store = &state.Store{}
	rt.Store.SetConnectivity(rt.Tracker.Reachable(), rt.Tracker.WorkOffline())

	policy := poll.Policy{Min: cfg.Poll.MinDelay, Max: cfg.Poll.MaxDelay, Factor: cfg.Poll.BackoffFactor}
	rt.Poller = poll.New(rt.Client, rt.Store, policy, logging.Component(rt.Logger, "poll"))

	rt.Coordinator, err = syncer.New(syncer.Deps{
		Uploader:     rt.Client,
		Queue:        rt.Pending,
		Connectivity: rt.Tracker,
		Refresher:    syncer.RefreshFunc(rt.Refresh),
		Store:        rt.Store,
		Logger:       logging.Component(rt.Logger, "syncer"),
	})
	if err != nil {
		_ = rt.Pending.Close()
		rt.closeLog()
		return nil, err
	}
	if _, err := rt.Coordinator.PendingCount(ctx); err != nil {
		rt.Logger.Warn("could not count pending uploads", "error", err)
	}

	rt.Logger.Info("runtime opened",
		"api_url", rt.Client.BaseURL(),
		"pending_db", rt.Pending.Path(),
		"work_offline", rt.Tracker.WorkOffline(),
	)
	return rt, nil
}

// Start launches the poller, the connectivity mirror, the recovery loop and
// the coordinator. The coordinator drains the queue once on start.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	// Uploads outlive the loops so Close(Closing) can let them finish.
	r.syncCtx, r.cancelSync = context.WithCancel(ctx)
	loopCtx, cancelLoops := context.WithCancel(ctx)
	r.cancelLoops = cancelLoops

	mirror, cancelMirror := r.Tracker.Subscribe()
	changes, cancelChanges := r.Tracker.Subscribe()
	forwarded := make(chan bool, 1)

	r.goFunc(func() { r.Poller.Run(loopCtx) })
	r.goFunc(func() {
		defer cancelMirror()
		r.mirrorConnectivity(loopCtx, mirror)
	})
	r.goFunc(func() {
		defer close(forwarded)
		defer cancelChanges()
		forward(loopCtx, changes, forwarded)
	})
	r.goFunc(func() { r.Coordinator.Run(r.syncCtx, forwarded) })
	r.goFunc(func() { r.recover(loopCtx, r.Poller.Policy().Max) })

	// Initial load; failures are recorded in the store.
	r.goFunc(func() { _ = r.Refresh(loopCtx) })
}

// forward copies in to out until ctx is done.
func forward(ctx context.Context, in <-chan bool, out chan<- bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Runtime) goFunc(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Runtime) mirrorConnectivity(ctx context.Context, changes <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			r.Store.SetConnectivity(r.Tracker.Reachable(), r.Tracker.WorkOffline())
		}
	}
}

// Close stops background work and releases resources. With Closing, an
// upload already in flight is allowed to finish; with Quitting it is
// cancelled and the recording stays queued.
func (r *Runtime) Close(lc Lifecycle) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancelLoops, cancelSync := r.cancelLoops, r.cancelSync
	r.mu.Unlock()

	r.Logger.Info("runtime closing", "lifecycle", lc.String())
	if lc == Quitting && cancelSync != nil {
		cancelSync()
	}
	if cancelLoops != nil {
		cancelLoops()
	}
	// Run has returned once wg is done, so no new drains can start.
	r.wg.Wait()
	r.Coordinator.Wait()
	if cancelSync != nil {
		cancelSync()
	}

	var errs []error
	if err := r.Pending.Close(); err != nil {
		errs = append(errs, err)
	}
	r.closeLog()
	return errors.Join(errs...)
}

// Sync drains the queue now, even when recent requests failed.
func (r *Runtime) Sync(ctx context.Context) syncer.Report {
	return r.Coordinator.DrainNow(ctx)
}

// TriggerSync starts Sync in the background.
func (r *Runtime) TriggerSync() {
	r.mu.Lock()
	ctx := r.syncCtx
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.Coordinator.TriggerDrain(ctx)
}

// SyncContext is the context uploads should run under. It is cancelled by
// Close(Quitting) and after Close(Closing) has let uploads finish.
func (r *Runtime) SyncContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncCtx == nil {
		return context.Background()
	}
	return r.syncCtx
}

func (r *Runtime) closeLog() {
	if r.logCloser != nil {
		_ = r.logCloser.Close()
		r.logCloser = nil
	}
}

// Refresh reloads the note list and the usage counters.
func (r *Runtime) Refresh(ctx context.Context) error {
	notesErr := r.Poller.Refresh(ctx)
	if notesErr != nil && !r.Tracker.Online() {
		return notesErr
	}
	return errors.Join(notesErr, r.RefreshUser(ctx))
}

// RefreshUser reloads the profile and usage counters.
func (r *Runtime) RefreshUser(ctx context.Context) error {
	user, err := r.Client.FetchUser(ctx)
	if err != nil {
		r.Logger.Warn("usage refresh failed", "error", err)
		return err
	}
	r.Store.SetUser(user)
	return nil
}

// SetWorkOffline switches offline mode and remembers the choice.
func (r *Runtime) SetWorkOffline(v bool) error {
	r.Tracker.SetWorkOffline(v)
	r.Store.SetConnectivity(r.Tracker.Reachable(), r.Tracker.WorkOffline())
	r.Prefs.WorkOffline = v
	return prefs.Save(r.PrefsPath, r.Prefs)
}

// SetForeground tells the poller whether the notes are on screen.
func (r *Runtime) SetForeground(visible bool) {
	r.Poller.SetForeground(visible)
}

// SavePrefs persists dashboard preferences.
func (r *Runtime) SavePrefs(p prefs.Prefs) error {
	r.Prefs = p
	return prefs.Save(r.PrefsPath, p)
}

// Capture hands a finished recording to the coordinator and reports the
// outcome as a capture event.
func (r *Runtime) Capture(ctx context.Context, rec capture.Recording) (syncer.Result, capture.Event) {
	res := r.Coordinator.Capture(ctx, rec.Blob, rec.Filename)
	return res, CaptureEvent(res.State)
}

// CaptureEvent maps a coordinator outcome onto the recorder's phases.
func CaptureEvent(s syncer.State) capture.Event {
	switch s {
	case syncer.Delivered:
		return capture.EventDelivered
	case syncer.QueuedOffline:
		return capture.EventQueued
	default:
		return capture.EventFailed
	}
}

// NewRecorder returns a recorder for the configured command.
func (r *Runtime) NewRecorder() (*capture.Recorder, error) {
	return capture.NewRecorder(r.Config.Record.Command, r.Config.Record.Filename, logging.Component(r.Logger, "capture"))
}

// recover retries a refresh every interval while the API is unreachable. A
// response flips the tracker back online, which starts a drain.
func (r *Runtime) recover(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = poll.DefaultPolicy().Max
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if r.Tracker.Reachable() || r.Tracker.WorkOffline() {
			continue
		}
		r.Logger.Debug("api unreachable, retrying refresh")
		_ = r.Poller.Refresh(ctx)
	}
}
