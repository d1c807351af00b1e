// Package pending is the durable queue of recordings that the server has not
// accepted yet.
//
// Entries live in a single SQLite table (pure-Go driver, no cgo) under the
// data directory so they survive restarts. An entry exists exactly while its
// audio is undelivered: it is written when a capture happens offline or an
// upload fails, and removed as soon as an upload succeeds. Entries are never
// modified in place.
//
// ListAll returns entries oldest first. Delete is idempotent. Any failure to
// read or write the database is reported as ErrStorageUnavailable so callers
// can tell the user the recording could not be saved.
package pending
