// Package ui implements the voicesync dashboard with Bubble Tea.
//
// # Architecture
//
// The dashboard never talks to the API itself. It reads state.Store
// snapshots on a one second tick and drives everything else through the
// Backend interface, which *app.Runtime implements:
//
//	tickMsg ─> fetchSnapshotCmd ─> snapshotMsg ─> Model.snapshot
//	key     ─> Backend call in a tea.Cmd ─> actionMsg ─> store notice
//
// Terminal focus is reported with tea.WithReportFocus; FocusMsg and BlurMsg
// tell the poller whether the notes are on screen.
//
// # Layout
//
//	header       online state, queued count, upload progress, usage, poll delay
//	command bar  key hints for the current view
//	content      notes table and detail pane, or the log view
//	footer       prompt, or the latest notice
//
// # Recording
//
// R starts the configured recorder and R again stops it. The recording goes
// to Backend.Capture, which uploads it or queues it offline. At exit, Run
// saves a recording that is still running and waits for one being stopped.
//
// # Themes
//
// Nightfox, Kanagawa and Slate; T cycles them and the choice is saved in the
// preferences file together with the note filter.
package ui
