package poll

import (
	"strings"
	"time"

	"github.com/five82/voicesync/internal/voicebrain"
)

const (
	DefaultMinDelay = 3 * time.Second
	DefaultMaxDelay = 30 * time.Second
	DefaultFactor   = 1.5
)

// Policy bounds the adaptive delay between note fetches.
type Policy struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
}

// DefaultPolicy returns 3s to 30s with a 1.5x step.
func DefaultPolicy() Policy {
	return Policy{Min: DefaultMinDelay, Max: DefaultMaxDelay, Factor: DefaultFactor}
}

func (p Policy) normalized() Policy {
	if p.Min <= 0 {
		p.Min = DefaultMinDelay
	}
	if p.Max < p.Min {
		p.Max = p.Min
	}
	if p.Factor <= 1 {
		p.Factor = DefaultFactor
	}
	return p
}

// State is the backoff state threaded through successive polls. Signature
// describes the note list the last decision was made against.
type State struct {
	Delay     time.Duration
	Signature string
}

// Initial returns the state for a freshly loaded list.
func (p Policy) Initial(notes []voicebrain.Note) State {
	p = p.normalized()
	return State{Delay: p.Min, Signature: Signature(notes)}
}

// Outcome is the result of one fetch.
type Outcome struct {
	Notes []voicebrain.Note
	Err   error
}

// Decision tells the caller what to do with an outcome.
type Decision struct {
	// Replace means the fetched list differs in status and should be applied.
	Replace bool
	// Schedule means another fetch is due after the returned State's Delay.
	Schedule bool
}

// Next computes the state after a fetch. It is pure: the same inputs always
// yield the same outputs.
//
// A failed fetch jumps to the maximum delay and keeps polling. A changed
// status signature resets to the minimum delay; an unchanged one grows the
// delay by Factor up to Max. Polling continues only while a fetched note is
// still non-terminal.
func (p Policy) Next(s State, o Outcome) (State, Decision) {
	p = p.normalized()
	if o.Err != nil {
		return State{Delay: p.Max, Signature: s.Signature}, Decision{Schedule: true}
	}

	sig := Signature(o.Notes)
	next := State{Signature: sig}
	var d Decision
	if sig != s.Signature {
		d.Replace = true
		next.Delay = p.Min
	} else {
		next.Delay = p.grow(s.Delay)
	}
	d.Schedule = AnyNonTerminal(o.Notes)
	return next, d
}

// Reset returns the state after an external full refresh of the list.
func (p Policy) Reset(notes []voicebrain.Note) State {
	return p.Initial(notes)
}

func (p Policy) grow(d time.Duration) time.Duration {
	if d < p.Min {
		d = p.Min
	}
	grown := time.Duration(float64(d) * p.Factor)
	if grown > p.Max {
		return p.Max
	}
	return grown
}

// Signature joins the statuses of notes in list order.
func Signature(notes []voicebrain.Note) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = string(n.Status)
	}
	return strings.Join(parts, ",")
}

// AnyNonTerminal reports whether any note is still PENDING or PROCESSING.
func AnyNonTerminal(notes []voicebrain.Note) bool {
	for _, n := range notes {
		if !n.Status.IsTerminal() {
			return true
		}
	}
	return false
}
