package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/voicebrain"
)

// Poller refetches the note list while the server is still processing
// notes, backing off while nothing changes.
//
// All scheduling happens on the goroutine running Run. Other goroutines
// talk to it through ReplaceNotes, Refresh and SetForeground, which never
// block on the loop.
type Poller struct {
	fetcher voicebrain.NoteFetcher
	store   *state.Store
	policy  Policy
	logger  *slog.Logger

	wake chan struct{}

	mu         sync.Mutex
	st         State
	gen        uint64
	foreground bool
	kick       bool
	rearm      bool
}

type fetchResult struct {
	gen   uint64
	notes []voicebrain.Note
	err   error
}

// New returns a Poller in the foreground state.
func New(fetcher voicebrain.NoteFetcher, store *state.Store, policy Policy, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	policy = policy.normalized()
	return &Poller{
		fetcher:    fetcher,
		store:      store,
		policy:     policy,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		st:         policy.Initial(store.Notes()),
		foreground: true,
		rearm:      true,
	}
}

// Policy returns the normalized backoff bounds.
func (p *Poller) Policy() Policy {
	return p.policy
}

// State returns the current backoff state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// SetForeground reports whether the user can see the notes. Going to the
// background cancels the scheduled fetch; returning schedules one
// immediately.
func (p *Poller) SetForeground(visible bool) {
	p.mu.Lock()
	if visible && !p.foreground {
		p.kick = true
	}
	p.foreground = visible
	p.mu.Unlock()
	p.signal()
}

// ReplaceNotes installs a list obtained outside the poll loop (edit, delete,
// search, post-sync refresh) and resets the delay to the minimum. A poll
// result that was in flight when this is called is discarded.
func (p *Poller) ReplaceNotes(notes []voicebrain.Note) {
	p.mu.Lock()
	p.gen++
	p.st = p.policy.Reset(notes)
	p.store.ReplaceNotes(notes)
	p.rearm = true
	p.mu.Unlock()
	p.signal()
}

// Refresh fetches the list with the store's current query and installs it
// through ReplaceNotes.
func (p *Poller) Refresh(ctx context.Context) error {
	notes, err := p.fetcher.ListNotes(ctx, p.store.Query())
	if err != nil {
		p.store.RecordError(err)
		p.logger.Warn("note refresh failed", "error", err)
		return err
	}
	p.ReplaceNotes(notes)
	return nil
}

func (p *Poller) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run drives the poll loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	results := make(chan fetchResult, 1)
	armed := false
	inFlight := false

	schedule := func(d time.Duration) {
		stopTimer(timer)
		timer.Reset(d)
		armed = true
	}
	disarm := func() {
		stopTimer(timer)
		armed = false
	}
	publish := func() {
		p.store.SetPollState(armed || inFlight, p.State().Delay)
	}

	reconcile := func() {
		if inFlight {
			publish()
			return
		}
		p.mu.Lock()
		fg, kick, rearm, delay := p.foreground, p.kick, p.rearm, p.st.Delay
		p.kick, p.rearm = false, false
		p.mu.Unlock()

		switch {
		case !fg || !AnyNonTerminal(p.store.Notes()):
			disarm()
		case kick:
			schedule(0)
		case rearm || !armed:
			schedule(delay)
		}
		publish()
	}

	reconcile()
	for {
		select {
		case <-ctx.Done():
			p.store.SetPollState(false, p.State().Delay)
			return

		case <-p.wake:
			reconcile()

		case <-timer.C:
			armed = false
			p.mu.Lock()
			fg, gen := p.foreground, p.gen
			p.mu.Unlock()
			if !fg || !AnyNonTerminal(p.store.Notes()) {
				reconcile()
				continue
			}
			inFlight = true
			query := p.store.Query()
			go func() {
				notes, err := p.fetcher.ListNotes(ctx, query)
				results <- fetchResult{gen: gen, notes: notes, err: err}
			}()
			publish()

		case res := <-results:
			inFlight = false
			if ctx.Err() != nil {
				continue
			}
			again := p.apply(res)
			p.mu.Lock()
			fg, delay := p.foreground, p.st.Delay
			p.kick, p.rearm = false, false
			p.mu.Unlock()
			if again && fg {
				schedule(delay)
			} else {
				disarm()
			}
			publish()
		}
	}
}

// apply feeds a fetch result through the policy and updates the store. It
// reports whether another fetch should be scheduled.
func (p *Poller) apply(res fetchResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.gen != p.gen {
		p.logger.Debug("discarding poll result superseded by refresh")
		return AnyNonTerminal(p.store.Notes())
	}
	next, decision := p.policy.Next(p.st, Outcome{Notes: res.notes, Err: res.err})
	p.st = next

	switch {
	case res.err != nil:
		p.store.RecordError(res.err)
		p.logger.Warn("note poll failed", "error", res.err, "next_delay", next.Delay)
	case decision.Replace:
		p.store.ReplaceNotes(res.notes)
		p.logger.Debug("note statuses changed", "signature", next.Signature, "next_delay", next.Delay)
	default:
		p.store.MarkFresh()
	}
	return decision.Schedule
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
