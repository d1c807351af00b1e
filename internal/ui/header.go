package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/voicesync/internal/state"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot
	compact := m.width < 100

	parts := []string{bg.Render("voicesync", styles.Logo)}

	switch {
	case snap.WorkOffline:
		parts = append(parts, bg.Render("● WORK OFFLINE", fgStyle(m.theme.StatusColors[statusWorkOff]).Bold(true)))
	case snap.Offline:
		parts = append(parts, bg.Render("● OFFLINE", fgStyle(m.theme.StatusColors[statusOffline]).Bold(true)))
	default:
		parts = append(parts, bg.Render("● ONLINE", fgStyle(m.theme.StatusColors[statusOnline]).Bold(true)))
	}

	if m.recording() {
		rec := fmt.Sprintf("REC %s %s", formatElapsed(m.recorder.Elapsed()), humanize.Bytes(uint64(m.recorder.Captured())))
		parts = append(parts, bg.Render("● "+rec, styles.DangerText))
	} else if m.stopping != nil {
		parts = append(parts, bg.Render("Saving recording", styles.WarningText))
	}

	pendingStyle := styles.MutedText
	if snap.PendingCount > 0 {
		pendingStyle = fgStyle(m.theme.StatusColors[statusQueued]).Bold(true)
	}
	parts = append(parts,
		bg.Render("Queued:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", snap.PendingCount), pendingStyle))

	switch {
	case snap.Uploading:
		parts = append(parts,
			bg.Render("Uploading", styles.InfoText)+bg.Space()+
				m.progress.ViewAs(float64(snap.UploadProgress)/100)+bg.Space()+
				bg.Render(fmt.Sprintf("%d%%", snap.UploadProgress), styles.Text))
	case snap.Syncing:
		parts = append(parts, m.spinner.View()+bg.Space()+bg.Render("Syncing", styles.InfoText))
	}

	if active := snap.ActiveCount(); active > 0 {
		parts = append(parts,
			bg.Render("Processing:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", active), fgStyle(m.theme.StatusColors[statusProcessing])))
	}

	if snap.HasUser && !compact {
		parts = append(parts,
			bg.Render(snap.User.TierLabel(), styles.AccentText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d min", snap.User.MinutesUsed()), styles.Text))
	}

	if snap.Polling && snap.PollDelay > 0 && !compact {
		parts = append(parts, bg.Render("poll "+snap.PollDelay.Round(100*time.Millisecond).String(), styles.FaintText))
	}

	if snap.IsStale() {
		parts = append(parts, bg.Render("STALE "+m.formatTimestamp(), styles.WarningText.Bold(true)))
	} else if !compact {
		parts = append(parts, bg.Render(m.formatTimestamp(), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func fgStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// formatTimestamp returns when the note list last refreshed.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return "never"
	}
	return m.snapshot.LastUpdated.Format("15:04:05")
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd
	if m.view == ViewLogs {
		commands = []cmd{
			{"j/k", "Scroll"},
			{"l", "Notes"},
			{"r", "Refresh"},
			{"?", "More"},
		}
	} else {
		record := "Record"
		if m.recording() {
			record = "Stop"
		}
		offline := "Offline"
		if m.snapshot.WorkOffline {
			offline = "Online"
		}
		commands = []cmd{
			{"R", record},
			{"/", "Search"},
			{"f", filterLabel(m.prefs.Filter)},
			{"s", "Sync"},
			{"o", offline},
			{"x/p", "Export"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if q := m.snapshot.Query; q != "" {
		segments = append(segments, bg.Render("/"+truncate(q, 18), styles.AccentText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderFooter shows the open prompt or the latest notice.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	switch m.prompt {
	case promptDelete:
		title := ""
		if note, ok := m.selectedNote(); ok {
			title = note.DisplayTitle()
		}
		return styles.WarningText.Render(fmt.Sprintf("Delete %q? (y/n)", truncate(title, 40)))
	case promptNone:
	default:
		return m.input.View()
	}

	notice, ok := m.snapshot.LatestNotice()
	if !ok {
		if err := m.snapshot.LastError; err != nil {
			return styles.DangerText.Render(truncate(err.Error(), m.width))
		}
		return ""
	}
	style := styles.MutedText
	switch notice.Level {
	case state.NoticeSuccess:
		style = styles.SuccessText
	case state.NoticeWarning:
		style = styles.WarningText
	case state.NoticeError:
		style = styles.DangerText
	}
	return style.Render(truncate(notice.Message, m.width-10)) + " " + styles.FaintText.Render(notice.At.Format("15:04"))
}
