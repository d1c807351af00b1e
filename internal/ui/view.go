package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// wideLayout is the width from which notes and detail sit side by side.
const wideLayout = 100

// renderMain renders header, command bar, content and footer.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if m.view == ViewLogs {
		b.WriteString(m.renderLogs(m.width, m.contentHeight()))
	} else {
		b.WriteString(m.renderNotes())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderNotes() string {
	tw, th, dw, dh := m.splitLayout()
	title := fmt.Sprintf("Notes %d · %s", len(m.visibleNotes()), filterLabel(m.prefs.Filter))
	table := m.renderTitledBox(title, m.renderNotesTable(tw-4, th-2), tw, th, true)
	detail := m.renderTitledBox("Detail", m.detail.View(), dw, dh, false)
	if m.width >= wideLayout {
		return lipgloss.JoinHorizontal(lipgloss.Top, table, detail)
	}
	return lipgloss.JoinVertical(lipgloss.Left, table, detail)
}

// contentHeight is what remains after header, command bar and footer.
func (m Model) contentHeight() int {
	return max(m.height-3, 4)
}

func (m Model) splitLayout() (tableW, tableH, detailW, detailH int) {
	h := m.contentHeight()
	if m.width >= wideLayout {
		tableW = m.width * 11 / 20
		return tableW, h, m.width - tableW, h
	}
	tableH = max(h/2, 3)
	return m.width, tableH, m.width, max(h-tableH, 3)
}

func (m *Model) resize() {
	_, _, dw, dh := m.splitLayout()
	m.detail.Width = max(dw-4, 1)
	m.detail.Height = max(dh-2, 1)
	m.logView.Width = max(m.width-4, 1)
	m.logView.Height = max(m.contentHeight()-2, 1)
	m.updateDetail()
	m.updateLogView()
}

// renderTitledBox renders content in a box with the title in the top border:
// ┌─ Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	border := fgStyle(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	inner := max(width-2, 2)
	label := " " + truncate(title, max(inner-4, 0)) + " "
	fill := max(inner-1-lipgloss.Width(label), 0)

	var b strings.Builder
	b.WriteString(border.Render("┌─") + titleStyle.Render(label) + border.Render(strings.Repeat("─", fill)+"┐"))

	lines := strings.Split(content, "\n")
	clip := lipgloss.NewStyle().MaxWidth(inner - 2)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = clip.Render(lines[i])
		}
		b.WriteString("\n")
		b.WriteString(border.Render("│") + " " + padRight(line, inner-2) + " " + border.Render("│"))
	}
	b.WriteString("\n")
	b.WriteString(border.Render("└" + strings.Repeat("─", inner) + "┘"))
	return b.String()
}
