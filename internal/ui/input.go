package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/voicesync/internal/capture"
	"github.com/five82/voicesync/internal/export"
	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/voicebrain"
)

type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptTitle
	promptTag
	promptDelete
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.updateDetail()
		m.updateLogView()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.view == ViewLogs {
			m.view = ViewNotes
			return m, nil
		}
		m.view = ViewLogs
		return m, m.fetchLogsCmd()

	case key.Matches(msg, m.keys.Escape):
		m.view = ViewNotes
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.backendAction("Notes refreshed", "Refresh failed", func(ctx context.Context, b Backend) error {
			return b.Refresh(ctx)
		})

	case key.Matches(msg, m.keys.Sync):
		if m.backend != nil {
			m.backend.TriggerSync()
		}
		return m, m.snapshotCmd()

	case key.Matches(msg, m.keys.ToggleOffline):
		return m.toggleOffline()

	case key.Matches(msg, m.keys.Record):
		return m.toggleRecording()
	}

	if m.view == ViewLogs {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m.handleNotesKey(msg)
}

// handleNotesKey processes keyboard input for the notes view.
func (m Model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	notes := m.visibleNotes()

	switch {
	case key.Matches(msg, m.keys.Search):
		cmd := m.openPrompt(promptSearch, "/ ", m.snapshot.Query)
		return m, cmd
	case key.Matches(msg, m.keys.CycleFilter):
		m.prefs.Filter = nextFilter(m.prefs.Filter)
		m.selected = 0
		m.savePrefs()
		m.updateDetail()
		return m, nil
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detail.HalfPageUp()
		return m, nil
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detail.HalfPageDown()
		return m, nil
	}

	if len(notes) == 0 {
		return m, nil
	}
	note := notes[m.selected]

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(notes)-1 {
			m.selected++
			m.updateDetail()
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.updateDetail()
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
		m.updateDetail()
	case key.Matches(msg, m.keys.Bottom):
		m.selected = len(notes) - 1
		m.updateDetail()

	case key.Matches(msg, m.keys.EditTitle):
		cmd := m.openPrompt(promptTitle, "Title: ", note.Title)
		return m, cmd
	case key.Matches(msg, m.keys.AddTag):
		cmd := m.openPrompt(promptTag, "Tag: ", "")
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		m.prompt = promptDelete
		return m, nil

	case key.Matches(msg, m.keys.ExportMD):
		dir := m.exportDir
		return m, func() tea.Msg {
			path, err := export.WriteMarkdownFile(note, dir)
			return actionMsg{notice: "Exported " + path, failure: "Export failed", err: err}
		}
	case key.Matches(msg, m.keys.ExportPDF):
		dir := m.exportDir
		return m, func() tea.Msg {
			path, err := export.WritePDFFile(note, dir)
			return actionMsg{notice: "Exported " + path, failure: "Export failed", err: err}
		}
	case key.Matches(msg, m.keys.Copy):
		return m, func() tea.Msg {
			return actionMsg{notice: "Copied to clipboard", failure: "Copy failed", err: export.Copy(note)}
		}
	}
	return m, nil
}

func (m *Model) openPrompt(kind promptKind, label, value string) tea.Cmd {
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

// handlePromptKey routes keys to the open prompt.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlC {
		m.closePrompt()
		return m, nil
	}

	if m.prompt == promptDelete {
		notes := m.visibleNotes()
		m.closePrompt()
		if !key.Matches(msg, m.keys.Yes) || len(notes) == 0 {
			return m, nil
		}
		id := notes[m.selected].ID
		return m, m.backendAction("Note deleted", "Delete failed", func(ctx context.Context, b Backend) error {
			return b.DeleteNotes(ctx, id)
		})
	}

	if !key.Matches(msg, m.keys.Confirm) {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	kind := m.prompt
	value := strings.TrimSpace(m.input.Value())
	m.closePrompt()
	cmd := m.submitPrompt(kind, value)
	return m, cmd
}

func (m *Model) submitPrompt(kind promptKind, value string) tea.Cmd {
	if kind == promptSearch {
		m.selected = 0
		return m.backendAction("", "Search failed", func(ctx context.Context, b Backend) error {
			return b.Search(ctx, value)
		})
	}

	notes := m.visibleNotes()
	if len(notes) == 0 {
		return nil
	}
	note := notes[m.selected]

	switch kind {
	case promptTitle:
		if value == "" || value == note.Title {
			return nil
		}
		return m.backendAction("Title updated", "Update failed", func(ctx context.Context, b Backend) error {
			_, err := b.UpdateNote(ctx, note.ID, voicebrain.NoteUpdate{Title: &value})
			return err
		})
	case promptTag:
		if value == "" {
			return nil
		}
		return m.backendAction(fmt.Sprintf("Tagged %q", value), "Tag failed", func(ctx context.Context, b Backend) error {
			_, err := b.AddTag(ctx, note, value)
			return err
		})
	}
	return nil
}

func (m Model) backendAction(notice, failure string, fn func(ctx context.Context, b Backend) error) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	b := m.backend
	return m.action(notice, failure, func(ctx context.Context) error { return fn(ctx, b) })
}

func (m Model) toggleOffline() (tea.Model, tea.Cmd) {
	if m.backend == nil {
		return m, nil
	}
	next := !m.snapshot.WorkOffline
	if err := m.backend.SetWorkOffline(next); err != nil && m.store != nil {
		m.store.Notify(state.NoticeWarning, "Could not save preferences: "+err.Error())
	}
	m.prefs.WorkOffline = next
	m.snapshot.WorkOffline = next
	return m, m.snapshotCmd()
}

// toggleRecording starts a recording, or stops the running one and hands it
// to the coordinator.
func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.backend == nil || m.stopping != nil {
		return m, nil
	}
	if m.recording() {
		f := newFinalizer(m.recorder, m.backend)
		m.stopping = f
		return m, func() tea.Msg { return f.run() }
	}

	rec, err := m.backend.NewRecorder()
	if err == nil {
		err = rec.Start(context.WithoutCancel(m.ctx))
	}
	if err != nil {
		m.notify(actionMsg{failure: "Recording failed", err: err})
		return m, m.snapshotCmd()
	}
	m.recorder = rec
	return m, nil
}

func (m Model) recording() bool {
	return m.recorder != nil && m.recorder.Phase() == capture.Capturing
}

func (m Model) handleCaptureDone(msg captureDoneMsg) (tea.Model, tea.Cmd) {
	m.stopping = nil
	if msg.err != nil {
		m.notify(actionMsg{failure: "Recording failed", err: msg.err})
	}
	return m, m.snapshotCmd()
}

// finishRecording runs when the program exits. It saves a recording that is
// still running and waits for one that is being stopped.
func (m Model) finishRecording() {
	switch {
	case m.stopping != nil:
		m.stopping.run()
	case m.recording() && m.backend != nil:
		newFinalizer(m.recorder, m.backend).run()
	}
}

// finalizer stops a recorder and hands the audio to the backend. The work
// happens once; later callers block until it is done and get the same result.
type finalizer struct {
	once    sync.Once
	rec     *capture.Recorder
	backend Backend
	done    captureDoneMsg
}

func newFinalizer(rec *capture.Recorder, b Backend) *finalizer {
	return &finalizer{rec: rec, backend: b}
}

func (f *finalizer) run() captureDoneMsg {
	f.once.Do(func() {
		recording, err := f.rec.Stop()
		if err != nil {
			f.done = captureDoneMsg{err: err}
			return
		}
		res, ev := f.backend.Capture(f.backend.SyncContext(), recording)
		_ = f.rec.Complete(ev)
		f.done = captureDoneMsg{res: res, ev: ev}
	})
	return f.done
}
