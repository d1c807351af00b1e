// Package state holds the shared view of notes, connectivity and sync
// progress for voicesync.
//
// # Overview
//
// Several goroutines write to the store: the note poller, the sync
// coordinator, the connectivity watcher and command handlers (edit, delete,
// search). The dashboard and CLI read from it. Store is the single place
// where those writers meet.
//
//	Writers:                          Readers:
//	┌───────────────────┐            ┌──────────────────┐
//	│ poller            │            │                  │
//	│  ReplaceNotes()   │            │                  │
//	│  RecordError()    │            │                  │
//	│ coordinator       │──(mutex)──→│ store.Snapshot() │
//	│  SetPending()     │            │       ↓          │
//	│  Notify()         │            │  render UI       │
//	│ connectivity      │            │                  │
//	│  SetConnectivity()│            │                  │
//	└───────────────────┘            └──────────────────┘
//
// # Concurrency Model
//
// Store uses a readers-writer lock. Every mutator replaces or patches the
// note list under the write lock, and readers receive copies, so a reader can
// never observe a list that is half old and half new.
//
// # Update Semantics
//
//	store.ReplaceNotes(notes)  // list replaced, failure counter reset
//	store.RecordError(err)     // list kept, LastError set, counter++
//
// IsStale reports two or more consecutive fetch failures. The UI uses it to
// mark the list as possibly out of date while still showing it.
//
// # Notices
//
// Notify keeps the last few user-facing messages ("Saved offline", "Limit
// reached"). Older notices are dropped.
//
// # Testing Considerations
//
// The zero value is ready to use:
//
//	store := &state.Store{}
package state
