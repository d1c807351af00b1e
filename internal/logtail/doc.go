// Package logtail reads and formats the voicesync log file.
//
// Read returns the last N lines of a file using a ring buffer, so memory is
// O(maxLines) regardless of file size. A missing file yields no lines and no
// error.
//
// Parse understands the slog text handler format:
//
//	time=2026-01-05T09:30:00.000+01:00 level=INFO msg="upload queued" component=syncer id=7f3c
//
// Format renders a record compactly with lipgloss colors from a Palette:
//
//	09:30:00 INFO  [syncer] upload queued id=7f3c
//
// Lines that are not slog records pass through unchanged.
package logtail
