package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/voicesync/internal/voicebrain"
)

const maxNotices = 5

// NoticeLevel grades a user-facing message.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short message for the user, e.g. "Saved offline".
type Notice struct {
	Level   NoticeLevel
	Message string
	At      time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Notes []voicebrain.Note
	Query string

	User    voicebrain.User
	HasUser bool

	Offline     bool // API unreachable or the user chose to work offline
	WorkOffline bool

	PendingCount   int
	Syncing        bool
	Uploading      bool
	UploadProgress int

	Polling   bool
	PollDelay time.Duration

	Notices []Notice

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive note fetch failures
}

// IsStale returns true when the note list has failed to refresh repeatedly.
func (s Snapshot) IsStale() bool {
	return s.ConsecutiveFailures >= 2
}

// ActiveCount returns how many notes the server is still processing.
func (s Snapshot) ActiveCount() int {
	n := 0
	for _, note := range s.Notes {
		if !note.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// LatestNotice returns the most recent notice, if any.
func (s Snapshot) LatestNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

// Store coordinates concurrent updates to the snapshot. The zero value is
// ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	clock    func() time.Time
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

// ReplaceNotes swaps in a freshly fetched note list and clears the failure
// counter.
func (s *Store) ReplaceNotes(notes []voicebrain.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Notes = cloneNotes(notes)
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = s.now()
	s.snapshot.ConsecutiveFailures = 0
}

// RecordError notes a failed fetch. The previous list is kept.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = err
	s.snapshot.LastUpdated = s.now()
	s.snapshot.ConsecutiveFailures++
}

// MarkFresh resets the failure counter without touching the list, used when
// a fetch succeeded but its result was not applied.
func (s *Store) MarkFresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = s.now()
	s.snapshot.ConsecutiveFailures = 0
}

// Notes returns a copy of the current note list.
func (s *Store) Notes() []voicebrain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNotes(s.snapshot.Notes)
}

// PatchNote replaces the note with the same id and reports whether it was
// found.
func (s *Store) PatchNote(note voicebrain.Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snapshot.Notes {
		if s.snapshot.Notes[i].ID == note.ID {
			notes := cloneNotes(s.snapshot.Notes)
			notes[i] = note.Clone()
			s.snapshot.Notes = notes
			return true
		}
	}
	return false
}

// RemoveNotes drops the notes with the given ids.
func (s *Store) RemoveNotes(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]voicebrain.Note, 0, len(s.snapshot.Notes))
	for _, n := range s.snapshot.Notes {
		if _, ok := drop[n.ID]; !ok {
			kept = append(kept, n.Clone())
		}
	}
	s.snapshot.Notes = kept
}

// SetQuery records the active semantic search.
func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Query = q
}

// Query returns the active semantic search.
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Query
}

// SetUser stores the latest profile and usage counters.
func (s *Store) SetUser(u voicebrain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.User = u
	s.snapshot.HasUser = true
}

// SetConnectivity records whether the API is usable and whether the user
// asked to work offline.
func (s *Store) SetConnectivity(online, workOffline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Offline = !online
	s.snapshot.WorkOffline = workOffline
}

// SetPending records the number of queued recordings.
func (s *Store) SetPending(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.PendingCount = n
}

// SetSyncing flags a drain in progress.
func (s *Store) SetSyncing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Syncing = v
}

// SetUploadProgress records upload progress. active=false hides the bar.
func (s *Store) SetUploadProgress(active bool, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Uploading = active
	s.snapshot.UploadProgress = percent
}

// SetPollState records the poller's schedule for display.
func (s *Store) SetPollState(active bool, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Polling = active
	s.snapshot.PollDelay = delay
}

// Notify appends a notice, keeping only the most recent few.
func (s *Store) Notify(level NoticeLevel, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notices := append(append([]Notice(nil), s.snapshot.Notices...), Notice{Level: level, Message: msg, At: s.now()})
	if len(notices) > maxNotices {
		notices = notices[len(notices)-maxNotices:]
	}
	s.snapshot.Notices = notices
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Notes = cloneNotes(s.snapshot.Notes)
	snap.Notices = append([]Notice(nil), s.snapshot.Notices...)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneNotes(notes []voicebrain.Note) []voicebrain.Note {
	if len(notes) == 0 {
		return nil
	}
	dup := make([]voicebrain.Note, len(notes))
	for i, n := range notes {
		dup[i] = n.Clone()
	}
	return dup
}
