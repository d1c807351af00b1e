// Package syncer decides what happens to a finished recording and keeps the
// offline queue moving.
//
// Capture either uploads a recording right away or, when offline or when the
// upload fails, stores it in the pending queue. A quota rejection is final and
// the recording is not kept.
//
// Drain walks the queue oldest first, one upload at a time. A failing entry is
// left in place and the pass continues. Successful entries are deleted before
// they are counted as delivered, so running Drain again never sends them
// twice. Only one drain runs at a time; overlapping triggers are dropped.
//
// Run drains at startup and whenever connectivity flips from offline to
// online.
package syncer
