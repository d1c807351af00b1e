package voicebrain

import (
	"testing"
	"time"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{"", true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Fatalf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNote_StatusLabel(t *testing.T) {
	tests := []struct {
		name string
		note Note
		want string
	}{
		{"completed", Note{Status: StatusCompleted}, ""},
		{"missing", Note{}, ""},
		{"failed", Note{Status: StatusFailed, ProcessingStep: "Transcribing"}, "FAILED"},
		{"step", Note{Status: StatusProcessing, ProcessingStep: "Summarizing"}, "Summarizing"},
		{"no step", Note{Status: StatusPending}, "PENDING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.note.StatusLabel(); got != tt.want {
				t.Fatalf("StatusLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNote_DisplayTitle(t *testing.T) {
	if got := (Note{Title: " Standup "}).DisplayTitle(); got != "Standup" {
		t.Fatalf("DisplayTitle = %q, want Standup", got)
	}
	if got := (Note{Status: StatusPending}).DisplayTitle(); got != "Processing recording…" {
		t.Fatalf("DisplayTitle = %q, want processing placeholder", got)
	}
	if got := (Note{Status: StatusFailed}).DisplayTitle(); got != "Untitled note" {
		t.Fatalf("DisplayTitle = %q, want Untitled note", got)
	}
}

func TestNote_ParsedCreatedAt(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2025-03-01T10:20:30Z", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01T10:20:30.123456", time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{"", time.Time{}},
		{"garbage", time.Time{}},
	}
	for _, tt := range tests {
		got := Note{CreatedAt: tt.value}.ParsedCreatedAt()
		if !got.Equal(tt.want) {
			t.Fatalf("ParsedCreatedAt(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNote_CloneDoesNotShareSlices(t *testing.T) {
	orig := Note{ID: "n1", Tags: []string{"a"}, ActionItems: []string{"call"}}
	dup := orig.Clone()
	dup.Tags[0] = "b"
	dup.ActionItems[0] = "email"
	if orig.Tags[0] != "a" || orig.ActionItems[0] != "call" {
		t.Fatalf("Clone shares slices with original: %#v", orig)
	}
}

func TestUser_UsageHelpers(t *testing.T) {
	u := User{SecondsUsedThisMonth: 185}
	if u.MinutesUsed() != 3 {
		t.Fatalf("MinutesUsed = %d, want 3", u.MinutesUsed())
	}
	if u.TierLabel() != "free" {
		t.Fatalf("TierLabel = %q, want free", u.TierLabel())
	}
	u.Tier = "PRO"
	if u.TierLabel() != "pro" {
		t.Fatalf("TierLabel = %q, want pro", u.TierLabel())
	}
}
