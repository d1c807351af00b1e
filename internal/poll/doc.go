// Package poll keeps the note list current while the server is processing
// recordings.
//
// The backoff is a pure function, Policy.Next, over an explicit State: a
// status change resets the delay to Policy.Min, an unchanged list grows it by
// Policy.Factor up to Policy.Max, and a failed fetch jumps straight to Max.
// Polling stops when every note is terminal (COMPLETED, FAILED or no status)
// and while the dashboard is in the background.
//
// Poller wraps the policy in a single goroutine. At most one fetch is in
// flight. ReplaceNotes and Refresh are the entry points for any refresh made
// outside the loop; both reset the delay.
package poll
