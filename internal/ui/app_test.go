package ui

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/voicesync/internal/capture"
	"github.com/five82/voicesync/internal/prefs"
	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/syncer"
	"github.com/five82/voicesync/internal/voicebrain"
)

type fakeBackend struct {
	store       *state.Store
	refreshed   int
	query       string
	syncs       int
	workOffline []bool
	foreground  []bool
	saved       []prefs.Prefs
	updates     map[string]voicebrain.NoteUpdate
	tagged      []string
	deleted     []string
	captured    []capture.Recording
	recorderCmd []string
	recorderErr error
}

func (f *fakeBackend) Refresh(ctx context.Context) error { f.refreshed++; return nil }
func (f *fakeBackend) Search(ctx context.Context, q string) error {
	f.query = q
	return nil
}
func (f *fakeBackend) TriggerSync()                  { f.syncs++ }
func (f *fakeBackend) SetForeground(visible bool)    { f.foreground = append(f.foreground, visible) }
func (f *fakeBackend) SavePrefs(p prefs.Prefs) error { f.saved = append(f.saved, p); return nil }
func (f *fakeBackend) SetWorkOffline(v bool) error {
	f.workOffline = append(f.workOffline, v)
	if f.store != nil {
		f.store.SetConnectivity(!v, v)
	}
	return nil
}

func (f *fakeBackend) UpdateNote(ctx context.Context, id string, u voicebrain.NoteUpdate) (voicebrain.Note, error) {
	if f.updates == nil {
		f.updates = map[string]voicebrain.NoteUpdate{}
	}
	f.updates[id] = u
	return voicebrain.Note{ID: id}, nil
}

func (f *fakeBackend) AddTag(ctx context.Context, note voicebrain.Note, tag string) (voicebrain.Note, error) {
	f.tagged = append(f.tagged, note.ID+":"+tag)
	return note, nil
}

func (f *fakeBackend) DeleteNotes(ctx context.Context, ids ...string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeBackend) NewRecorder() (*capture.Recorder, error) {
	if f.recorderErr != nil {
		return nil, f.recorderErr
	}
	return capture.NewRecorder(f.recorderCmd, "", nil)
}

func (f *fakeBackend) Capture(ctx context.Context, rec capture.Recording) (syncer.Result, capture.Event) {
	f.captured = append(f.captured, rec)
	return syncer.Result{State: syncer.Delivered}, capture.EventDelivered
}

func (f *fakeBackend) SyncContext() context.Context { return context.Background() }

var testNotes = []voicebrain.Note{
	{ID: "n1", Title: "Standup", Summary: "Release on Friday.", Tags: []string{"work"}, CreatedAt: "2026-10-18T09:00:00", Status: voicebrain.StatusCompleted},
	{ID: "n2", Status: voicebrain.StatusProcessing, ProcessingStep: "transcribing"},
	{ID: "n3", Title: "Groceries", Status: voicebrain.StatusFailed, ProcessingError: "audio too short"},
}

func newTestModel(t *testing.T, notes ...voicebrain.Note) (Model, *fakeBackend, *state.Store) {
	t.Helper()
	store := &state.Store{}
	store.ReplaceNotes(notes)
	backend := &fakeBackend{store: store}
	m := New(Options{Backend: backend, Store: store, ExportDir: t.TempDir(), PollTick: time.Hour})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, snapshotMsg(store.Snapshot()))
	return m, backend, store
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends msg and runs the command it returns, feeding the result back.
// Commands from an open prompt are cursor blinks and are dropped.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil || m.prompt != promptNone {
		return m
	}
	switch out := cmd().(type) {
	case actionMsg, captureDoneMsg, logLinesMsg, snapshotMsg:
		return update(t, m, out)
	}
	return m
}

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestNew_Defaults(t *testing.T) {
	m := New(Options{})
	if m.theme.Name != "Nightfox" {
		t.Fatalf("theme = %q, want Nightfox", m.theme.Name)
	}
	if m.prefs.Filter != filterAll {
		t.Fatalf("filter = %q, want all", m.prefs.Filter)
	}
	if m.pollTick != DefaultUIInterval {
		t.Fatalf("pollTick = %s, want %s", m.pollTick, DefaultUIInterval)
	}
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View before size = %q, want Loading...", got)
	}
}

func TestNavigation(t *testing.T) {
	m, _, _ := newTestModel(t, testNotes...)

	m = press(t, m, keys("j"))
	m = press(t, m, keys("j"))
	m = press(t, m, keys("j"))
	if m.selected != 2 {
		t.Fatalf("selected = %d, want 2 (clamped)", m.selected)
	}
	m = press(t, m, keys("k"))
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	m = press(t, m, keys("g"))
	if m.selected != 0 {
		t.Fatalf("selected = %d, want 0", m.selected)
	}
	m = press(t, m, keys("G"))
	if m.selected != 2 {
		t.Fatalf("selected = %d, want 2", m.selected)
	}

	// A shorter list pulls the selection back in range.
	m = update(t, m, snapshotMsg(state.Snapshot{Notes: testNotes[:1]}))
	if m.selected != 0 {
		t.Fatalf("selected = %d after shrink, want 0", m.selected)
	}
}

func TestFilterNotes(t *testing.T) {
	tests := []struct {
		filter string
		want   []string
	}{
		{filterAll, []string{"n1", "n2", "n3"}},
		{filterActive, []string{"n2"}},
		{filterFailed, []string{"n3"}},
		{"bogus", []string{"n1", "n2", "n3"}},
	}
	for _, tt := range tests {
		got := filterNotes(testNotes, tt.filter)
		ids := make([]string, len(got))
		for i, n := range got {
			ids[i] = n.ID
		}
		if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
			t.Fatalf("filterNotes(%q) = %v, want %v", tt.filter, ids, tt.want)
		}
	}
}

func TestCycleFilterSavesPrefs(t *testing.T) {
	m, backend, _ := newTestModel(t, testNotes...)
	m = press(t, m, keys("G"))

	m = press(t, m, keys("f"))
	if m.prefs.Filter != filterActive {
		t.Fatalf("filter = %q, want active", m.prefs.Filter)
	}
	if m.selected != 0 || len(m.visibleNotes()) != 1 {
		t.Fatalf("selected = %d visible = %d, want 0 and 1", m.selected, len(m.visibleNotes()))
	}
	if len(backend.saved) != 1 || backend.saved[0].Filter != filterActive {
		t.Fatalf("saved prefs = %+v, want filter active", backend.saved)
	}
	m = press(t, m, keys("f"))
	m = press(t, m, keys("f"))
	if m.prefs.Filter != filterAll {
		t.Fatalf("filter = %q after full cycle, want all", m.prefs.Filter)
	}
}

func TestCycleThemeSavesPrefs(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = press(t, m, keys("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	if len(backend.saved) != 1 || backend.saved[0].Theme != "Kanagawa" {
		t.Fatalf("saved prefs = %+v, want theme Kanagawa", backend.saved)
	}
}

func TestFocusDrivesForeground(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = update(t, m, tea.BlurMsg{})
	update(t, m, tea.FocusMsg{})
	if len(backend.foreground) != 2 || backend.foreground[0] || !backend.foreground[1] {
		t.Fatalf("foreground calls = %v, want [false true]", backend.foreground)
	}
}

func TestSearchPrompt(t *testing.T) {
	m, backend, _ := newTestModel(t, testNotes...)
	m = press(t, m, keys("/"))
	if m.prompt != promptSearch {
		t.Fatalf("prompt = %v, want search", m.prompt)
	}
	// Keys that are bindings elsewhere are plain text in a prompt.
	for _, r := range "e standup" {
		m = press(t, m, keys(string(r)))
	}
	m = press(t, m, enter)
	if m.prompt != promptNone {
		t.Fatalf("prompt still open after enter")
	}
	if backend.query != "e standup" {
		t.Fatalf("query = %q, want %q", backend.query, "e standup")
	}
}

func TestPromptEscCancels(t *testing.T) {
	m, backend, _ := newTestModel(t, testNotes...)
	m = press(t, m, keys("t"))
	m = press(t, m, keys("x"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompt != promptNone || len(backend.tagged) != 0 {
		t.Fatalf("prompt = %v tagged = %v, want closed and untouched", m.prompt, backend.tagged)
	}
}

func TestEditTitleAndTag(t *testing.T) {
	m, backend, store := newTestModel(t, testNotes...)

	m = press(t, m, keys("E"))
	if got := m.input.Value(); got != "Standup" {
		t.Fatalf("prompt value = %q, want current title", got)
	}
	m = press(t, m, keys("!"))
	m = press(t, m, enter)
	u, ok := backend.updates["n1"]
	if !ok || u.Title == nil || *u.Title != "Standup!" {
		t.Fatalf("updates = %+v, want n1 title Standup!", backend.updates)
	}

	m = press(t, m, keys("t"))
	for _, r := range "team" {
		m = press(t, m, keys(string(r)))
	}
	press(t, m, enter)
	if len(backend.tagged) != 1 || backend.tagged[0] != "n1:team" {
		t.Fatalf("tagged = %v, want [n1:team]", backend.tagged)
	}
	if notice, _ := store.Snapshot().LatestNotice(); notice.Message != `Tagged "team"` {
		t.Fatalf("notice = %q, want tag confirmation", notice.Message)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, backend, _ := newTestModel(t, testNotes...)
	m = press(t, m, keys("j"))

	m = press(t, m, keys("d"))
	if m.prompt != promptDelete {
		t.Fatalf("prompt = %v, want delete confirmation", m.prompt)
	}
	if !strings.Contains(m.View(), "(y/n)") {
		t.Fatalf("view does not show the confirmation")
	}
	m = press(t, m, keys("n"))
	if len(backend.deleted) != 0 {
		t.Fatalf("deleted = %v after n, want none", backend.deleted)
	}

	m = press(t, m, keys("d"))
	press(t, m, keys("y"))
	if len(backend.deleted) != 1 || backend.deleted[0] != "n2" {
		t.Fatalf("deleted = %v, want [n2]", backend.deleted)
	}
}

func TestToggleOfflineAndSync(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = press(t, m, keys("o"))
	if len(backend.workOffline) != 1 || !backend.workOffline[0] {
		t.Fatalf("SetWorkOffline calls = %v, want [true]", backend.workOffline)
	}
	if !m.snapshot.WorkOffline {
		t.Fatalf("snapshot not marked offline")
	}
	m = press(t, m, keys("o"))
	if len(backend.workOffline) != 2 || backend.workOffline[1] {
		t.Fatalf("SetWorkOffline calls = %v, want [true false]", backend.workOffline)
	}

	press(t, m, keys("s"))
	if backend.syncs != 1 {
		t.Fatalf("syncs = %d, want 1", backend.syncs)
	}
}

func TestRefreshKey(t *testing.T) {
	m, backend, store := newTestModel(t)
	press(t, m, keys("r"))
	if backend.refreshed != 1 {
		t.Fatalf("refreshed = %d, want 1", backend.refreshed)
	}
	if notice, ok := store.Snapshot().LatestNotice(); !ok || notice.Message != "Notes refreshed" {
		t.Fatalf("notice = %+v, want refresh confirmation", notice)
	}
}

func TestActionErrorBecomesNotice(t *testing.T) {
	m, _, store := newTestModel(t)
	update(t, m, actionMsg{failure: "Delete failed", err: errors.New("boom")})
	notice, ok := store.Snapshot().LatestNotice()
	if !ok || notice.Level != state.NoticeError || notice.Message != "Delete failed: boom" {
		t.Fatalf("notice = %+v, want error notice", notice)
	}

	update(t, m, actionMsg{failure: "Upload failed", err: &voicebrain.QuotaExceededError{Message: "Monthly limit reached"}})
	notice, _ = store.Snapshot().LatestNotice()
	if !strings.Contains(notice.Message, "Monthly limit reached") {
		t.Fatalf("notice = %q, want quota message", notice.Message)
	}
}

func TestExportMarkdownKey(t *testing.T) {
	m, _, store := newTestModel(t, testNotes...)
	press(t, m, keys("x"))
	if _, err := os.Stat(filepath.Join(m.exportDir, "Standup.md")); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	notice, _ := store.Snapshot().LatestNotice()
	if !strings.HasPrefix(notice.Message, "Exported ") {
		t.Fatalf("notice = %q, want export confirmation", notice.Message)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	for _, msg := range []tea.KeyMsg{keys("e"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s returned no command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s did not quit", msg)
		}
	}
}

func TestHelpOverlay(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, keys("?"))
	view := m.View()
	for _, want := range []string{"Keyboard Shortcuts", "Record start/stop", "Export PDF"} {
		if !strings.Contains(view, want) {
			t.Fatalf("help view missing %q", want)
		}
	}
	m = press(t, m, keys("j"))
	if m.showHelp {
		t.Fatalf("help still shown after a key")
	}
}

func TestView_HeaderAndNotes(t *testing.T) {
	m, _, _ := newTestModel(t, testNotes...)
	snap := m.snapshot
	snap.Offline = true
	snap.PendingCount = 2
	snap.HasUser = true
	snap.User = voicebrain.User{Tier: "PRO", SecondsUsedThisMonth: 300}
	m = update(t, m, snapshotMsg(snap))

	view := m.View()
	for _, want := range []string{"voicesync", "OFFLINE", "Queued:", "pro", "5 min", "Standup", "transcribing", "FAILED", "Release on Friday."} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if lines := strings.Count(view, "\n") + 1; lines != 40 {
		t.Fatalf("view has %d lines, want 40", lines)
	}
}

func TestView_UploadProgressAndStale(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(t, m, snapshotMsg(state.Snapshot{Uploading: true, UploadProgress: 42, ConsecutiveFailures: 3}))
	view := m.View()
	if !strings.Contains(view, "Uploading") || !strings.Contains(view, "42%") {
		t.Fatalf("view missing upload progress:\n%s", view)
	}
	if !strings.Contains(view, "STALE") {
		t.Fatalf("view missing stale marker:\n%s", view)
	}
}

func TestLogsView(t *testing.T) {
	backend := &fakeBackend{}
	logPath := filepath.Join(t.TempDir(), "voicesync.log")
	line := `time=2026-10-19T10:00:00.000Z level=WARN msg="upload failed" component=syncer`
	if err := os.WriteFile(logPath, []byte(line+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := New(Options{Backend: backend, Store: &state.Store{}, LogPath: logPath, PollTick: time.Hour})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m = press(t, m, keys("l"))
	if m.view != ViewLogs {
		t.Fatalf("view = %v, want logs", m.view)
	}
	if !strings.Contains(m.View(), "upload failed") {
		t.Fatalf("log view missing line:\n%s", m.View())
	}
	m = press(t, m, keys("l"))
	if m.view != ViewNotes {
		t.Fatalf("view = %v, want notes", m.view)
	}
}

// startRecording presses R with script as the recorder and waits for output.
func startRecording(t *testing.T, m Model, backend *fakeBackend, script string) Model {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	backend.recorderCmd = []string{"sh", "-c", script}

	m = press(t, m, keys("R"))
	if !m.recording() {
		t.Fatalf("recorder not running after R")
	}
	deadline := time.Now().Add(3 * time.Second)
	for m.recorder.Captured() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("recorder produced no output")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return m
}

func TestRecordToggle(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = startRecording(t, m, backend, "printf 'OggS-audio'; exec sleep 30")

	m = press(t, m, keys("R"))
	if len(backend.captured) != 1 || string(backend.captured[0].Blob) != "OggS-audio" {
		t.Fatalf("captured = %+v, want one recording", backend.captured)
	}
	if got := m.recorder.Phase(); got != capture.Delivered {
		t.Fatalf("phase = %s, want delivered", got)
	}
	if m.stopping != nil {
		t.Fatalf("stopping still set after captureDoneMsg")
	}
}

func TestRecordStopPressedTwiceStopsOnce(t *testing.T) {
	m, backend, store := newTestModel(t)
	m = startRecording(t, m, backend, "printf 'OggS-audio'; exec sleep 30")

	next, stop := m.Update(keys("R"))
	m = next.(Model)
	if stop == nil || m.stopping == nil {
		t.Fatalf("first R did not start the stop")
	}
	next, again := m.Update(keys("R"))
	m = next.(Model)
	if again != nil {
		t.Fatalf("second R returned a command while stopping")
	}

	m = update(t, m, stop())
	if len(backend.captured) != 1 {
		t.Fatalf("captured %d recordings, want 1", len(backend.captured))
	}
	if notice, ok := store.Snapshot().LatestNotice(); ok && strings.Contains(notice.Message, "Recording failed") {
		t.Fatalf("notice = %q, want no failure", notice.Message)
	}
}

func TestFinishRecording_WaitsForStopInFlight(t *testing.T) {
	m, backend, _ := newTestModel(t)
	// The recorder takes a second to exit after the interrupt.
	m = startRecording(t, m, backend, "trap 'sleep 1; exit 0' INT; printf 'OggS-audio'; while :; do sleep 1; done")

	next, stop := m.Update(keys("R"))
	m = next.(Model)
	go stop()

	deadline := time.Now().Add(3 * time.Second)
	for m.recorder.Phase() != capture.Finalizing {
		if time.Now().After(deadline) {
			t.Fatalf("phase = %s, want finalizing", m.recorder.Phase())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Quitting now must not drop the recording.
	m.finishRecording()
	if len(backend.captured) != 1 || string(backend.captured[0].Blob) != "OggS-audio" {
		t.Fatalf("captured = %+v, want the finalizing recording", backend.captured)
	}
	if got := m.recorder.Phase(); got != capture.Delivered {
		t.Fatalf("phase = %s, want delivered", got)
	}
}

func TestFinishRecording_StopCommandNeverRan(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = startRecording(t, m, backend, "printf 'OggS-audio'; exec sleep 30")

	next, _ := m.Update(keys("R"))
	m = next.(Model)
	m.finishRecording()
	if len(backend.captured) != 1 {
		t.Fatalf("captured %d recordings, want 1", len(backend.captured))
	}
}

func TestFinishRecording_SavesRunningRecording(t *testing.T) {
	m, backend, _ := newTestModel(t)
	m = startRecording(t, m, backend, "printf 'OggS-audio'; exec sleep 30")

	m.finishRecording()
	if len(backend.captured) != 1 {
		t.Fatalf("captured %d recordings, want 1", len(backend.captured))
	}
	if got := m.recorder.Phase(); got != capture.Delivered {
		t.Fatalf("phase = %s, want delivered", got)
	}
}

func TestRecordStartFailureIsNotice(t *testing.T) {
	m, backend, store := newTestModel(t)
	backend.recorderErr = errors.New("record command not configured")
	m = press(t, m, keys("R"))
	if m.recording() {
		t.Fatalf("recording after failure")
	}
	notice, _ := store.Snapshot().LatestNotice()
	if !strings.Contains(notice.Message, "not configured") {
		t.Fatalf("notice = %q, want recorder error", notice.Message)
	}
}
