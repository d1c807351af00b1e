package export

import (
	"strings"
	"testing"

	"github.com/five82/voicesync/internal/voicebrain"
)

func sampleNote() voicebrain.Note {
	return voicebrain.Note{
		ID:                "n-1",
		Title:             "Grocery run: Tuesday",
		Summary:           "Buy milk and eggs.",
		TranscriptionText: "I need to buy milk.\nAlso eggs.",
		ActionItems:       []string{"Buy milk", "Buy eggs"},
		Tags:              []string{"errands", "food"},
		CreatedAt:         "2026-01-05T09:30:00",
		Status:            voicebrain.StatusCompleted,
	}
}

func TestMarkdownLayout(t *testing.T) {
	doc, err := Markdown(sampleNote())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	text := string(doc)

	if !strings.HasPrefix(text, "---\n") {
		t.Fatalf("document should open with front matter, got %q", text[:20])
	}
	for _, want := range []string{
		"mood: Neutral",
		"2026-01-05",
		"voicebrain_id: n-1",
		"# Grocery run: Tuesday\n\nBuy milk and eggs.\n\n",
		"## Action Items\n\n- [ ] Buy milk\n- [ ] Buy eggs\n",
		"## Transcript\n\nI need to buy milk.\nAlso eggs.\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q\n%s", want, text)
		}
	}
	if strings.Index(text, "## Action Items") > strings.Index(text, "## Transcript") {
		t.Fatalf("action items should precede transcript")
	}
}

func TestMarkdownFrontMatterRoundTrip(t *testing.T) {
	doc, err := Markdown(sampleNote())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	title, tags, err := ParseFrontMatter(doc)
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if title != "Grocery run: Tuesday" {
		t.Fatalf("title = %q, want %q", title, "Grocery run: Tuesday")
	}
	if strings.Join(tags, ",") != "errands,food" {
		t.Fatalf("tags = %v, want [errands food]", tags)
	}
}

func TestMarkdownKeepsExplicitMoodAndEmptyTags(t *testing.T) {
	note := sampleNote()
	note.Mood = "Excited"
	note.Tags = nil
	note.ActionItems = nil

	doc, err := Markdown(note)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	text := string(doc)
	if !strings.Contains(text, "mood: Excited") {
		t.Fatalf("explicit mood not kept:\n%s", text)
	}
	if !strings.Contains(text, "tags: []") {
		t.Fatalf("empty tags should render as []:\n%s", text)
	}
	if strings.Contains(text, "## Action Items") {
		t.Fatalf("action items section should be omitted when empty")
	}
}

func TestParseFrontMatterRejectsPlainDocument(t *testing.T) {
	if _, _, err := ParseFrontMatter([]byte("# just a heading\n")); err == nil {
		t.Fatalf("expected error for document without front matter")
	}
	if _, _, err := ParseFrontMatter([]byte("---\ntitle: x\n")); err == nil {
		t.Fatalf("expected error for unterminated front matter")
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(sampleNote())
	want := "# Grocery run: Tuesday\n\nBuy milk and eggs.\n\n## Transcript\nI need to buy milk.\nAlso eggs.\n\nTags: errands, food"
	if got != want {
		t.Fatalf("PlainText = %q, want %q", got, want)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces", "Team sync notes", "Team_sync_notes"},
		{"punctuation", "Grocery run: Tuesday!", "Grocery_run_Tuesday"},
		{"slashes", "a/b\\c", "abc"},
		{"empty", "", "note"},
		{"only symbols", "???", "note"},
		{"unicode", "Café idées", "Café_idées"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(voicebrain.Note{Title: tt.title})
			if got != tt.want {
				t.Fatalf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestFilenameTruncatesLongTitles(t *testing.T) {
	got := Filename(voicebrain.Note{Title: strings.Repeat("é", 200)})
	if n := len([]rune(got)); n != maxFilenameRunes {
		t.Fatalf("len = %d runes, want %d", n, maxFilenameRunes)
	}
}
