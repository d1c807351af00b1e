package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/voicesync/internal/voicebrain"
)

// WriteMarkdownFile writes note as Markdown into dir and returns the path.
func WriteMarkdownFile(note voicebrain.Note, dir string) (string, error) {
	doc, err := Markdown(note)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure export directory: %w", err)
	}
	path := uniquePath(dir, Filename(note), ".md")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

// Archive writes one Markdown file per note into a ZIP at w. Notes that fail
// to render are reported by id and skipped.
func Archive(w io.Writer, notes []voicebrain.Note) (failed []string, err error) {
	zw := zip.NewWriter(w)
	used := make(map[string]int, len(notes))

	for _, note := range notes {
		doc, err := Markdown(note)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", note.ID, err))
			continue
		}

		base := Filename(note)
		name := base + ".md"
		if n := used[base]; n > 0 {
			name = fmt.Sprintf("%s_%d.md", base, n+1)
		}
		used[base]++

		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if created := note.ParsedCreatedAt(); !created.IsZero() {
			hdr.Modified = created
		} else {
			hdr.Modified = time.Now()
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (zip error: %v)", note.ID, err))
			continue
		}
		if _, err := fw.Write(doc); err != nil {
			failed = append(failed, fmt.Sprintf("%s (write error: %v)", note.ID, err))
		}
	}
	if err := zw.Close(); err != nil {
		return failed, fmt.Errorf("close archive: %w", err)
	}
	return failed, nil
}

// WriteArchiveFile creates a ZIP of notes at path.
func WriteArchiveFile(notes []voicebrain.Note, path string) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	failed, err := Archive(f, notes)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close archive file: %w", cerr)
	}
	return failed, err
}

func uniquePath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
}
