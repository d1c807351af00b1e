package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/five82/voicesync/internal/voicebrain"
	"github.com/jung-kurt/gofpdf"
)

// WritePDFFile renders note as an A4 PDF into dir and returns the path.
func WritePDFFile(note voicebrain.Note, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure pdf directory: %w", err)
	}
	path := uniquePath(dir, Filename(note), ".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate so accents survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(note.DisplayTitle(), true)
	pdf.SetAuthor("voicesync", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(note.DisplayTitle()), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	meta := []string{}
	if created := note.ParsedCreatedAt(); !created.IsZero() {
		meta = append(meta, "Created: "+created.Local().Format("2006-01-02 15:04"))
	}
	if note.Mood != "" {
		meta = append(meta, "Mood: "+note.Mood)
	}
	if len(note.Tags) > 0 {
		meta = append(meta, "Tags: "+strings.Join(note.Tags, ", "))
	}
	for _, line := range meta {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	writeSection(pdf, tr, "Summary", note.Summary, false)
	if len(note.ActionItems) > 0 {
		pdf.Ln(4)
		writeSection(pdf, tr, "Action Items", strings.Join(note.ActionItems, "\n"), true)
	}
	pdf.Ln(4)
	writeSection(pdf, tr, "Transcript", note.TranscriptionText, false)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

func writeSection(pdf *gofpdf.Fpdf, tr func(string) string, title, content string, bullet bool) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	content = strings.TrimSpace(content)
	if content == "" {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
		return
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bullet {
			line = "- " + line
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
}
