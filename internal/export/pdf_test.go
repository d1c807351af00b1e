package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/voicesync/internal/voicebrain"
)

func TestWritePDFFile(t *testing.T) {
	dir := t.TempDir()
	note := sampleNote()
	note.Title = "Café notes"

	path, err := WritePDFFile(note, dir)
	if err != nil {
		t.Fatalf("WritePDFFile: %v", err)
	}
	if filepath.Ext(path) != ".pdf" {
		t.Fatalf("path = %s, want .pdf extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:8])
	}
}

func TestWritePDFFileEmptyNote(t *testing.T) {
	if _, err := WritePDFFile(voicebrain.Note{ID: "x"}, t.TempDir()); err != nil {
		t.Fatalf("WritePDFFile: %v", err)
	}
}
