package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/voicesync/internal/capture"
	"github.com/five82/voicesync/internal/prefs"
	"github.com/five82/voicesync/internal/state"
	"github.com/five82/voicesync/internal/syncer"
	"github.com/five82/voicesync/internal/voicebrain"
)

// DefaultUIInterval is how often the dashboard re-reads the state store.
const DefaultUIInterval = time.Second

const (
	actionTimeout = 30 * time.Second
	logLimit      = 500
)

// View represents the current active view.
type View int

const (
	ViewNotes View = iota
	ViewLogs
)

// Backend is what the dashboard drives. *app.Runtime implements it.
type Backend interface {
	Refresh(ctx context.Context) error
	Search(ctx context.Context, query string) error
	TriggerSync()
	SetWorkOffline(v bool) error
	SetForeground(visible bool)
	SavePrefs(p prefs.Prefs) error

	UpdateNote(ctx context.Context, id string, update voicebrain.NoteUpdate) (voicebrain.Note, error)
	AddTag(ctx context.Context, note voicebrain.Note, tag string) (voicebrain.Note, error)
	DeleteNotes(ctx context.Context, ids ...string) error

	NewRecorder() (*capture.Recorder, error)
	Capture(ctx context.Context, rec capture.Recording) (syncer.Result, capture.Event)
	SyncContext() context.Context
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Store     *state.Store
	Prefs     prefs.Prefs
	ExportDir string
	LogPath   string
	PollTick  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	backend   Backend
	store     *state.Store
	keys      keyMap
	prefs     prefs.Prefs
	exportDir string
	logPath   string
	pollTick  time.Duration

	// UI state
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selected    int

	detail   viewport.Model
	detailID string
	logView  viewport.Model
	logLines []string

	prompt promptKind
	input  textinput.Model

	spinner  spinner.Model
	progress progress.Model

	recorder *capture.Recorder
	stopping *finalizer // set from the stop key until captureDoneMsg
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	p := opts.Prefs
	if p.Theme == "" {
		p.Theme = ThemeNames()[0]
	}
	if p.Filter == "" {
		p.Filter = filterAll
	}

	input := textinput.New()
	input.CharLimit = 200

	m := Model{
		ctx:       ctx,
		backend:   opts.Backend,
		store:     opts.Store,
		keys:      DefaultKeyMap(),
		prefs:     p,
		exportDir: opts.ExportDir,
		logPath:   opts.LogPath,
		pollTick:  pollTick,
		theme:     GetTheme(p.Theme),
		view:      ViewNotes,
		detail:    viewport.New(0, 0),
		logView:   viewport.New(0, 0),
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(16), progress.WithoutPercentage()),
	}
	m.applyTheme()
	return m
}

func (m *Model) applyTheme() {
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Info))
	m.input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick), m.spinner.Tick}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.FocusMsg:
		if m.backend != nil {
			m.backend.SetForeground(true)
		}
		return m, nil

	case tea.BlurMsg:
		if m.backend != nil {
			m.backend.SetForeground(false)
		}
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		m.updateDetail()
		return m, nil

	case actionMsg:
		m.notify(msg)
		return m, m.snapshotCmd()

	case logLinesMsg:
		m.logLines = msg
		m.updateLogView()
		return m, nil

	case captureDoneMsg:
		return m.handleCaptureDone(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.view == ViewLogs {
		cmds = append(cmds, m.fetchLogsCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) snapshotCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

func (m Model) notify(msg actionMsg) {
	if m.store == nil {
		return
	}
	switch {
	case msg.err != nil:
		m.store.Notify(state.NoticeError, msg.failure+": "+errorText(msg.err))
	case msg.notice != "":
		m.store.Notify(state.NoticeSuccess, msg.notice)
	}
}

func errorText(err error) string {
	var quota *voicebrain.QuotaExceededError
	if errors.As(err, &quota) {
		return quota.UserMessage()
	}
	return err.Error()
}

func (m *Model) savePrefs() {
	if m.backend == nil {
		return
	}
	if err := m.backend.SavePrefs(m.prefs); err != nil && m.store != nil {
		m.store.Notify(state.NoticeWarning, "Could not save preferences: "+err.Error())
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// actionMsg reports the end of a background action.
type actionMsg struct {
	notice  string // shown on success
	failure string // prefix shown with err
	err     error
}

type logLinesMsg []string

type captureDoneMsg struct {
	res syncer.Result
	ev  capture.Event
	err error // recorder error, before the coordinator saw anything
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// action runs fn in the background with a timeout and reports the outcome.
func (m Model) action(notice, failure string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		return actionMsg{notice: notice, failure: failure, err: fn(ctx)}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled. A recording still running at exit is stopped and handed to
// the coordinator.
func Run(ctx context.Context, opts Options) error {
	opts.Context = ctx
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.finishRecording()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
