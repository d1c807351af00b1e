// Package app is the composition root of voicesync.
//
// Open loads the configuration and wires the components:
//
//	config.Load ─> logging.OpenFile
//	            ─> connectivity.Tracker (observes every HTTP request)
//	            ─> voicebrain.Client    (transport wrapped by the tracker)
//	            ─> pending.Store        (<data_dir>/pending.db)
//	            ─> state.Store          (shared by poller, coordinator and UI)
//	            ─> poll.Poller
//	            ─> syncer.Coordinator   (refreshes through Runtime.Refresh)
//
// Start runs the background goroutines:
//
//   - the poller loop
//   - a mirror copying tracker changes into the state store
//   - the coordinator, which drains at startup and whenever the API comes back
//   - a recovery loop that retries a refresh every max poll delay while the
//     API is unreachable, since there is no health endpoint to probe
//   - the initial note and usage load
//
// Close takes a Lifecycle. Closing stops the loops but lets an upload that is
// already on the wire finish; Quitting cancels it, and the recording stays in
// the pending store for the next run.
//
// Note operations (Search, UpdateNote, AddTag, DeleteNotes) install their
// result through poll.Poller.ReplaceNotes, which resets the backoff and
// discards any poll result that was in flight.
package app
