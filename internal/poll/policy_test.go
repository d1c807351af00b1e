package poll

import (
	"errors"
	"testing"
	"time"

	"github.com/five82/voicesync/internal/voicebrain"
)

func notesWith(statuses ...voicebrain.Status) []voicebrain.Note {
	notes := make([]voicebrain.Note, len(statuses))
	for i, s := range statuses {
		notes[i] = voicebrain.Note{ID: string(rune('a' + i)), Status: s}
	}
	return notes
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name  string
		notes []voicebrain.Note
		want  string
	}{
		{"empty", nil, ""},
		{"single", notesWith(voicebrain.StatusPending), "PENDING"},
		{"ordered", notesWith(voicebrain.StatusProcessing, voicebrain.StatusCompleted), "PROCESSING,COMPLETED"},
		{"missing status", notesWith("", voicebrain.StatusFailed), ",FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signature(tt.notes); got != tt.want {
				t.Fatalf("Signature = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnyNonTerminal(t *testing.T) {
	if AnyNonTerminal(notesWith(voicebrain.StatusCompleted, voicebrain.StatusFailed, "")) {
		t.Fatalf("AnyNonTerminal = true for terminal list")
	}
	if !AnyNonTerminal(notesWith(voicebrain.StatusCompleted, voicebrain.StatusPending)) {
		t.Fatalf("AnyNonTerminal = false with a pending note")
	}
	if AnyNonTerminal(nil) {
		t.Fatalf("AnyNonTerminal(nil) = true")
	}
}

// A note stuck in PROCESSING backs off, then a status change resets the delay.
func TestPolicyNext_BacksOffThenResetsOnChange(t *testing.T) {
	p := DefaultPolicy()
	processing := notesWith(voicebrain.StatusProcessing)
	st := p.Initial(processing)
	if st.Delay != 3*time.Second {
		t.Fatalf("initial delay = %v, want 3s", st.Delay)
	}

	st, d := p.Next(st, Outcome{Notes: processing})
	if d.Replace {
		t.Fatalf("unchanged signature asked for replace")
	}
	if !d.Schedule {
		t.Fatalf("processing note not scheduled")
	}
	if st.Delay != 4500*time.Millisecond {
		t.Fatalf("delay after unchanged poll = %v, want 4.5s", st.Delay)
	}

	completed := notesWith(voicebrain.StatusCompleted)
	st, d = p.Next(st, Outcome{Notes: completed})
	if !d.Replace {
		t.Fatalf("changed signature did not ask for replace")
	}
	if d.Schedule {
		t.Fatalf("terminal list still scheduled")
	}
	if st.Delay != 3*time.Second {
		t.Fatalf("delay after change = %v, want 3s", st.Delay)
	}
	if st.Signature != "COMPLETED" {
		t.Fatalf("signature = %q, want COMPLETED", st.Signature)
	}
}

func TestPolicyNext_ThreeNotesOneCompletes(t *testing.T) {
	p := DefaultPolicy()
	before := notesWith(voicebrain.StatusProcessing, voicebrain.StatusProcessing, voicebrain.StatusCompleted)
	st := p.Initial(before)

	st, d := p.Next(st, Outcome{Notes: notesWith(voicebrain.StatusProcessing, voicebrain.StatusProcessing, voicebrain.StatusCompleted)})
	if st.Delay != 4500*time.Millisecond || d.Replace {
		t.Fatalf("after identical poll: delay %v replace %v, want 4.5s false", st.Delay, d.Replace)
	}

	st, d = p.Next(st, Outcome{Notes: notesWith(voicebrain.StatusCompleted, voicebrain.StatusProcessing, voicebrain.StatusCompleted)})
	if st.Delay != 3*time.Second || !d.Replace || !d.Schedule {
		t.Fatalf("after one flip: delay %v decision %+v, want 3s replace schedule", st.Delay, d)
	}
}

func TestPolicyNext_MonotonicAndBounded(t *testing.T) {
	p := DefaultPolicy()
	notes := notesWith(voicebrain.StatusPending, voicebrain.StatusCompleted)
	st := p.Initial(notes)

	prev := st.Delay
	for i := 0; i < 20; i++ {
		var d Decision
		st, d = p.Next(st, Outcome{Notes: notes})
		if st.Delay < prev {
			t.Fatalf("poll %d: delay decreased %v -> %v", i, prev, st.Delay)
		}
		if st.Delay > p.Max || st.Delay < p.Min {
			t.Fatalf("poll %d: delay %v outside [%v, %v]", i, st.Delay, p.Min, p.Max)
		}
		if !d.Schedule {
			t.Fatalf("poll %d: pending note not scheduled", i)
		}
		prev = st.Delay
	}
	if st.Delay != p.Max {
		t.Fatalf("delay after many unchanged polls = %v, want %v", st.Delay, p.Max)
	}
}

func TestPolicyNext_ErrorJumpsToMax(t *testing.T) {
	p := DefaultPolicy()
	st := p.Initial(notesWith(voicebrain.StatusPending))

	next, d := p.Next(st, Outcome{Err: errors.New("offline")})
	if next.Delay != p.Max {
		t.Fatalf("delay after error = %v, want %v", next.Delay, p.Max)
	}
	if !d.Schedule || d.Replace {
		t.Fatalf("decision after error = %+v, want schedule without replace", d)
	}
	if next.Signature != st.Signature {
		t.Fatalf("error changed signature %q -> %q", st.Signature, next.Signature)
	}
}

func TestPolicy_NormalizesBadBounds(t *testing.T) {
	p := Policy{Min: -1, Max: time.Millisecond, Factor: 0.5}.normalized()
	if p.Min != DefaultMinDelay || p.Max != DefaultMinDelay || p.Factor != DefaultFactor {
		t.Fatalf("normalized = %+v", p)
	}
}
