package export

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/five82/voicesync/internal/voicebrain"
)

// ErrClipboardUnavailable means no clipboard helper was found on this system.
var ErrClipboardUnavailable = errors.New("clipboard unavailable: install xclip, xsel or wl-clipboard")

var (
	writeClipboard       = clipboard.WriteAll
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

// Copy places the plain-text rendering of note on the clipboard.
func Copy(note voicebrain.Note) error {
	if clipboardUnsupported() {
		return ErrClipboardUnavailable
	}
	if err := writeClipboard(PlainText(note)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
