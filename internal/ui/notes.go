package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/voicesync/internal/voicebrain"
)

// Note filters, stored in prefs.
const (
	filterAll    = "all"
	filterActive = "active"
	filterFailed = "failed"
)

// Badge keys for Theme.StatusColors.
const (
	statusProcessing = "processing"
	statusFailed     = "failed"
	statusQueued     = "queued"
	statusOnline     = "online"
	statusOffline    = "offline"
	statusWorkOff    = "work_offline"
)

func nextFilter(current string) string {
	switch current {
	case filterAll:
		return filterActive
	case filterActive:
		return filterFailed
	default:
		return filterAll
	}
}

func filterLabel(f string) string {
	switch f {
	case filterActive:
		return "Active"
	case filterFailed:
		return "Failed"
	default:
		return "All"
	}
}

func filterNotes(notes []voicebrain.Note, filter string) []voicebrain.Note {
	if filter != filterActive && filter != filterFailed {
		return notes
	}
	out := make([]voicebrain.Note, 0, len(notes))
	for _, n := range notes {
		switch {
		case filter == filterActive && !n.Status.IsTerminal():
			out = append(out, n)
		case filter == filterFailed && n.Status == voicebrain.StatusFailed:
			out = append(out, n)
		}
	}
	return out
}

func (m Model) visibleNotes() []voicebrain.Note {
	return filterNotes(m.snapshot.Notes, m.prefs.Filter)
}

func (m *Model) clampSelection() {
	n := len(m.visibleNotes())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) selectedNote() (voicebrain.Note, bool) {
	notes := m.visibleNotes()
	if len(notes) == 0 || m.selected >= len(notes) {
		return voicebrain.Note{}, false
	}
	return notes[m.selected], true
}

// noteStatusKey maps a note onto a badge key; completed notes have none.
func noteStatusKey(n voicebrain.Note) string {
	switch {
	case n.Status == voicebrain.StatusFailed:
		return statusFailed
	case !n.Status.IsTerminal():
		return statusProcessing
	}
	return ""
}

// renderNotesTable renders one line per visible note.
func (m Model) renderNotesTable(width, height int) string {
	styles := m.theme.Styles()
	notes := m.visibleNotes()
	if len(notes) == 0 {
		msg := "No notes yet. Press R to record."
		if m.snapshot.Query != "" {
			msg = fmt.Sprintf("No notes match %q.", m.snapshot.Query)
		} else if m.prefs.Filter != filterAll {
			msg = "No " + strings.ToLower(filterLabel(m.prefs.Filter)) + " notes."
		}
		return styles.MutedText.Render(msg)
	}

	// Keep the selection on screen.
	start := 0
	if height > 0 && m.selected >= height {
		start = m.selected - height + 1
	}
	end := min(len(notes), start+max(height, 1))

	const ageWidth = 14
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		n := notes[i]
		marker := "  "
		if !n.Status.IsTerminal() {
			marker = m.spinner.View() + " "
		}

		badge := ""
		if label := n.StatusLabel(); label != "" {
			badge = styles.StatusStyle(noteStatusKey(n)).Render(truncate(label, 14))
		}
		age := noteAge(n)

		titleWidth := width - 2 - lipgloss.Width(badge) - ageWidth - 2
		title := padRight(truncate(n.DisplayTitle(), titleWidth), max(titleWidth, 0))

		if i == m.selected {
			title = styles.Selected.Render(title)
		} else {
			title = styles.Text.Render(title)
		}
		line := marker + title + " " + badge
		line = padRight(line, width-ageWidth) + styles.FaintText.Render(padRight(age, ageWidth))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func noteAge(n voicebrain.Note) string {
	created := n.ParsedCreatedAt()
	if created.IsZero() {
		return ""
	}
	return humanize.Time(created)
}

// renderDetail renders the selected note for the detail viewport.
func (m Model) renderDetail(width int) string {
	styles := m.theme.Styles()
	note, ok := m.selectedNote()
	if !ok {
		return styles.MutedText.Render("Select a note to see its details.")
	}
	wrap := lipgloss.NewStyle().Width(max(width, 10))

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(note.DisplayTitle()))
	b.WriteString("\n")

	var meta []string
	if created := note.ParsedCreatedAt(); !created.IsZero() {
		meta = append(meta, created.Format("2006-01-02 15:04"))
	}
	if note.Mood != "" {
		meta = append(meta, note.Mood)
	}
	if len(meta) > 0 {
		b.WriteString(styles.MutedText.Render(strings.Join(meta, " · ")))
		b.WriteString("\n")
	}
	if len(note.Tags) > 0 {
		tags := make([]string, len(note.Tags))
		for i, t := range note.Tags {
			tags[i] = "#" + t
		}
		b.WriteString(styles.AccentText.Render(strings.Join(tags, " ")))
		b.WriteString("\n")
	}
	if label := note.StatusLabel(); label != "" {
		b.WriteString(styles.StatusStyle(noteStatusKey(note)).Render(label))
		b.WriteString("\n")
	}
	if note.ProcessingError != "" {
		b.WriteString(wrap.Render(styles.DangerText.Render(note.ProcessingError)))
		b.WriteString("\n")
	}

	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render(title))
		b.WriteString("\n")
		b.WriteString(wrap.Render(body))
		b.WriteString("\n")
	}
	section("Summary", note.Summary)
	if len(note.ActionItems) > 0 {
		section("Action Items", "• "+strings.Join(note.ActionItems, "\n• "))
	}
	section("Transcript", note.TranscriptionText)

	if len(note.IntegrationStatus) > 0 {
		lines := make([]string, 0, len(note.IntegrationStatus))
		for _, is := range note.IntegrationStatus {
			line := is.Provider + ": " + is.Status
			if is.Error != "" {
				line += " (" + is.Error + ")"
			}
			lines = append(lines, line)
		}
		section("Integrations", strings.Join(lines, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) updateDetail() {
	if m.detail.Width <= 0 {
		return
	}
	m.detail.SetContent(m.renderDetail(m.detail.Width))
	// Keep the scroll position while the same note stays selected.
	note, _ := m.selectedNote()
	if note.ID != m.detailID {
		m.detailID = note.ID
		m.detail.GotoTop()
	}
}
