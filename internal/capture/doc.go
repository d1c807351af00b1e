// Package capture wraps audio recording as an explicit state machine.
//
// voicesync does not record audio itself. Recorder runs a configured command
// that writes audio to stdout and stops it with an interrupt. FromFile turns
// an existing file into a Recording. Transition is the pure phase function
// both paths share.
package capture
