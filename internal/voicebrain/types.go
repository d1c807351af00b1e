package voicebrain

import (
	"strings"
	"time"
)

// naiveTimestampLayout matches the server's timezone-less ISO timestamps.
const naiveTimestampLayout = "2006-01-02T15:04:05.999999999"

// Status is the server-side processing state of a note.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether the server is done with the note. A missing
// status counts as terminal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPending, StatusProcessing:
		return false
	default:
		return true
	}
}

// Note mirrors the payload returned by /notes.
type Note struct {
	ID                string              `json:"id"`
	Title             string              `json:"title,omitempty"`
	TranscriptionText string              `json:"transcription_text,omitempty"`
	Summary           string              `json:"summary,omitempty"`
	ActionItems       []string            `json:"action_items,omitempty"`
	Tags              []string            `json:"tags,omitempty"`
	Mood              string              `json:"mood,omitempty"`
	AudioURL          string              `json:"audio_url,omitempty"`
	CreatedAt         string              `json:"created_at"`
	Status            Status              `json:"status,omitempty"`
	ProcessingError   string              `json:"processing_error,omitempty"`
	ProcessingStep    string              `json:"processing_step,omitempty"`
	IntegrationStatus []IntegrationStatus `json:"integration_status,omitempty"`
}

// IntegrationStatus reports fan-out delivery of a note to a third-party tool.
type IntegrationStatus struct {
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (n Note) ParsedCreatedAt() time.Time {
	return parseTime(n.CreatedAt)
}

// DisplayTitle falls back to a placeholder while the server has not produced
// a title yet.
func (n Note) DisplayTitle() string {
	if title := strings.TrimSpace(n.Title); title != "" {
		return title
	}
	if !n.Status.IsTerminal() {
		return "Processing recording…"
	}
	return "Untitled note"
}

// StatusLabel is what the dashboard shows for a note: nothing for completed
// notes, FAILED for failures, and the processing step while in flight.
func (n Note) StatusLabel() string {
	switch n.Status {
	case StatusCompleted, "":
		return ""
	case StatusFailed:
		return "FAILED"
	}
	if step := strings.TrimSpace(n.ProcessingStep); step != "" {
		return step
	}
	return string(n.Status)
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	dup := n
	dup.ActionItems = cloneStrings(n.ActionItems)
	dup.Tags = cloneStrings(n.Tags)
	if len(n.IntegrationStatus) > 0 {
		dup.IntegrationStatus = append([]IntegrationStatus(nil), n.IntegrationStatus...)
	}
	return dup
}

// NoteUpdate is the body of PUT /notes/{id}. Nil fields are left untouched.
type NoteUpdate struct {
	Title             *string  `json:"title,omitempty"`
	Summary           *string  `json:"summary,omitempty"`
	TranscriptionText *string  `json:"transcription_text,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	ActionItems       []string `json:"action_items,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Summary == nil && u.TranscriptionText == nil && u.Tags == nil && u.ActionItems == nil
}

// User mirrors /auth/me. Only the fields the client shows are decoded.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	FullName             string     `json:"full_name,omitempty"`
	Tier                 string     `json:"tier"`
	SecondsUsedThisMonth int        `json:"seconds_used_this_month"`
	BillingCycleStart    *time.Time `json:"billing_cycle_start,omitempty"`
}

// MinutesUsed returns the usage counter rounded down to whole minutes.
func (u User) MinutesUsed() int {
	return u.SecondsUsedThisMonth / 60
}

// TierLabel returns the plan name, defaulting to free.
func (u User) TierLabel() string {
	if tier := strings.TrimSpace(u.Tier); tier != "" {
		return strings.ToLower(tier)
	}
	return "free"
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(naiveTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
