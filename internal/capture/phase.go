package capture

import (
	"errors"
	"fmt"
)

// Phase is the recorder's lifecycle.
//
//	Idle → Capturing → Finalizing → Delivered
//	                              → Queued
//	                              → Failed
type Phase int

const (
	Idle Phase = iota
	Capturing
	Finalizing
	Delivered
	Queued
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Capturing:
		return "recording"
	case Finalizing:
		return "finalizing"
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Done reports whether the phase ends a capture cycle.
func (p Phase) Done() bool {
	return p == Delivered || p == Queued || p == Failed
}

// Event drives a Phase transition.
type Event int

const (
	EventStart Event = iota
	EventStop
	EventDelivered
	EventQueued
	EventFailed
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventDelivered:
		return "delivered"
	case EventQueued:
		return "queued"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrInvalidTransition is returned for an event the current phase does not
// accept.
var ErrInvalidTransition = errors.New("invalid capture transition")

// Transition returns the phase that follows event. A finished cycle accepts
// EventStart to begin the next recording. EventFailed is accepted from any
// active phase.
func Transition(p Phase, e Event) (Phase, error) {
	switch {
	case e == EventStart && (p == Idle || p.Done()):
		return Capturing, nil
	case e == EventStop && p == Capturing:
		return Finalizing, nil
	case e == EventDelivered && p == Finalizing:
		return Delivered, nil
	case e == EventQueued && p == Finalizing:
		return Queued, nil
	case e == EventFailed && (p == Capturing || p == Finalizing):
		return Failed, nil
	}
	return p, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, p)
}
