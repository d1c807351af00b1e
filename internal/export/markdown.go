package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/five82/voicesync/internal/voicebrain"
	"gopkg.in/yaml.v2"
)

const (
	defaultMood      = "Neutral"
	maxFilenameRunes = 80
)

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N} _-]+`)

// frontMatter is the YAML header Obsidian and similar tools read.
type frontMatter struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date,omitempty"`
	Tags    []string `yaml:"tags,flow"`
	Mood    string   `yaml:"mood"`
	Summary string   `yaml:"summary,omitempty"`
	Audio   string   `yaml:"audio,omitempty"`
	ID      string   `yaml:"voicebrain_id"`
}

// Markdown renders note as a Markdown document with YAML front matter.
func Markdown(note voicebrain.Note) ([]byte, error) {
	fm := frontMatter{
		Title:   note.DisplayTitle(),
		Tags:    note.Tags,
		Mood:    note.Mood,
		Summary: strings.TrimSpace(note.Summary),
		Audio:   note.AudioURL,
		ID:      note.ID,
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	if strings.TrimSpace(fm.Mood) == "" {
		fm.Mood = defaultMood
	}
	if created := note.ParsedCreatedAt(); !created.IsZero() {
		fm.Date = created.Format("2006-01-02")
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", note.DisplayTitle())
	if summary := strings.TrimSpace(note.Summary); summary != "" {
		fmt.Fprintf(&buf, "%s\n\n", summary)
	}
	if len(note.ActionItems) > 0 {
		buf.WriteString("## Action Items\n\n")
		for _, item := range note.ActionItems {
			fmt.Fprintf(&buf, "- [ ] %s\n", item)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("## Transcript\n\n")
	buf.WriteString(strings.TrimSpace(note.TranscriptionText))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// PlainText is the clipboard rendering of a note.
func PlainText(note voicebrain.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", note.DisplayTitle())
	if s := strings.TrimSpace(note.Summary); s != "" {
		fmt.Fprintf(&b, "%s\n\n", s)
	}
	fmt.Fprintf(&b, "## Transcript\n%s\n\n", strings.TrimSpace(note.TranscriptionText))
	fmt.Fprintf(&b, "Tags: %s", strings.Join(note.Tags, ", "))
	return b.String()
}

// ParseFrontMatter reads the YAML header back from an exported document.
func ParseFrontMatter(doc []byte) (title string, tags []string, err error) {
	text := string(doc)
	if !strings.HasPrefix(text, "---\n") {
		return "", nil, fmt.Errorf("document has no front matter")
	}
	end := strings.Index(text[4:], "\n---\n")
	if end < 0 {
		return "", nil, fmt.Errorf("front matter not terminated")
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(text[4:4+end]), &fm); err != nil {
		return "", nil, fmt.Errorf("decode front matter: %w", err)
	}
	return fm.Title, fm.Tags, nil
}

// Filename returns a filesystem-safe base name (without extension) for note.
func Filename(note voicebrain.Note) string {
	title := strings.TrimSpace(note.Title)
	if title == "" {
		title = "note"
	}
	title = unsafeFilenameChars.ReplaceAllString(title, "")
	title = strings.Join(strings.Fields(title), "_")
	if title == "" {
		title = "note"
	}
	if r := []rune(title); len(r) > maxFilenameRunes {
		title = strings.TrimRight(string(r[:maxFilenameRunes]), "_")
	}
	return title
}
