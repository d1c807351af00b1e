// Package connectivity decides whether the VoiceBrain API is usable.
//
// The tracker learns passively from the HTTP transport: any response means
// the API is reachable, and a run of transport failures means it is not. The
// user can also force offline mode, in which case requests fail fast without
// touching the network.
package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
)

// DefaultFailureThreshold is how many consecutive transport failures mark
// the API offline.
const DefaultFailureThreshold = 2

// ErrWorkingOffline is returned by the transport while offline mode is on.
var ErrWorkingOffline = errors.New("working offline")

// Tracker holds the current connectivity verdict.
type Tracker struct {
	threshold int
	logger    *slog.Logger

	mu          sync.Mutex
	failures    int
	unreachable bool
	workOffline bool
	subs        map[chan bool]struct{}
}

// New returns a Tracker that starts online.
func New(threshold int, logger *slog.Logger) *Tracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{threshold: threshold, logger: logger, subs: make(map[chan bool]struct{})}
}

// Online reports whether uploads should be attempted.
func (t *Tracker) Online() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineLocked()
}

// Reachable reports the transport's verdict, ignoring offline mode.
func (t *Tracker) Reachable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.unreachable
}

// WorkOffline reports whether the user forced offline mode.
func (t *Tracker) WorkOffline() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workOffline
}

func (t *Tracker) onlineLocked() bool {
	return !t.unreachable && !t.workOffline
}

// SetWorkOffline turns offline mode on or off.
func (t *Tracker) SetWorkOffline(v bool) {
	t.update(func() { t.workOffline = v })
	t.logger.Info("offline mode changed", "work_offline", v)
}

// ReportSuccess records a request that produced an HTTP response.
func (t *Tracker) ReportSuccess() {
	t.update(func() {
		t.failures = 0
		t.unreachable = false
	})
}

// ReportFailure records a request that never produced a response.
func (t *Tracker) ReportFailure(err error) {
	t.update(func() {
		t.failures++
		if t.failures >= t.threshold {
			t.unreachable = true
		}
	})
	t.logger.Debug("transport failure", "error", err)
}

func (t *Tracker) update(fn func()) {
	t.mu.Lock()
	before := t.onlineLocked()
	fn()
	after := t.onlineLocked()
	if before != after {
		// publish never blocks, so delivering under the lock keeps order.
		for ch := range t.subs {
			publish(ch, after)
		}
	}
	t.mu.Unlock()

	if before != after {
		t.logger.Info("connectivity changed", "online", after)
	}
}

// Subscribe returns a channel that receives the new verdict on every change.
// Slow readers only ever see the latest value. Call cancel to stop.
func (t *Tracker) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
		})
	}
}

func publish(ch chan bool, v bool) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Transport wraps base so every request feeds the tracker.
func (t *Tracker) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &observedTransport{base: base, tracker: t}
}

type observedTransport struct {
	base    http.RoundTripper
	tracker *Tracker
}

func (o *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if o.tracker.WorkOffline() {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrWorkingOffline
	}
	resp, err := o.base.RoundTrip(req)
	if err != nil {
		// A caller giving up says nothing about the network.
		if !errors.Is(err, context.Canceled) && !errors.Is(req.Context().Err(), context.Canceled) {
			o.tracker.ReportFailure(err)
		}
		return nil, err
	}
	o.tracker.ReportSuccess()
	return resp, nil
}
