// Package cli implements the voicesync command tree with cobra.
//
// Running voicesync without a subcommand opens the dashboard. The other
// commands open the runtime, do one thing and close it again:
//
//	voicesync record               capture from the configured recorder
//	voicesync upload FILE...       send existing audio files
//	voicesync sync                 drain the offline queue once
//	voicesync pending              list queued recordings
//	voicesync notes list|show|edit|delete|export|copy
//	voicesync usage                plan and minutes used
//	voicesync logs                 tail the log file
//
// --config, --prefs and --offline apply to every command.
package cli
