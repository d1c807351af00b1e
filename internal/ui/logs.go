package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/voicesync/internal/logtail"
)

// fetchLogsCmd reads the tail of the log file.
func (m Model) fetchLogsCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logLimit)
		if err != nil {
			return logLinesMsg{"could not read " + path + ": " + err.Error()}
		}
		return logLinesMsg(lines)
	}
}

func (m *Model) updateLogView() {
	if m.logView.Width <= 0 {
		return
	}
	follow := m.logView.AtBottom() || m.logView.TotalLineCount() == 0
	if len(m.logLines) == 0 {
		m.logView.SetContent(m.theme.Styles().MutedText.Render("No log lines yet."))
		return
	}
	m.logView.SetContent(strings.Join(logtail.FormatLines(m.logLines, m.theme.LogPalette()), "\n"))
	if follow {
		m.logView.GotoBottom()
	}
}

func (m Model) renderLogs(width, height int) string {
	title := "Logs"
	if m.logPath != "" {
		title += " · " + truncateMiddle(m.logPath, max(width-12, 10))
	}
	return m.renderTitledBox(title, m.logView.View(), width, height, true)
}
