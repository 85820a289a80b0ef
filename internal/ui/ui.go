package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ModuleListView ViewState = iota
	ReaderView
	CompleteView
)

// Options selects where the reader starts.
type Options struct {
	Slug     string // Open this module on start
	Continue bool   // Open the resume target on start
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	userID   string
	tracker  *progress.Tracker
	resolver *progress.Resolver
	opts     Options
	width    int
	height   int
	modules  list.Model
	overview *progress.Overview
	session  *progress.Session
	bar      bar.Model
	content  viewport.Model
	busy     bool
	notice   string
	warning  string
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a study reader for userID.
func NewModel(ctx context.Context, userID string, tracker *progress.Tracker, resolver *progress.Resolver, opts Options) *Model {
	modules := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	modules.Title = "Modules"
	modules.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     ModuleListView,
		userID:   userID,
		tracker:  tracker,
		resolver: resolver,
		opts:     opts,
		modules:  modules,
		bar:      bar.New(bar.WithDefaultGradient(), bar.WithWidth(40)),
		content:  viewport.New(80, 12),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the overview and, when requested, opens the starting module.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadOverview()}
	switch {
	case m.opts.Slug != "":
		m.busy = true
		cmds = append(cmds, m.enter(m.opts.Slug))
	case m.opts.Continue:
		m.busy = true
		cmds = append(cmds, m.continueReading())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.modules.SetSize(msg.Width-4, msg.Height-6)
		m.content.Width = msg.Width - 4
		m.content.Height = max(msg.Height-12, 3)
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ModuleListView:
			return m.handleListKeys(msg)
		case ReaderView:
			return m.handleReaderKeys(msg)
		case CompleteView:
			return m.handleCompleteKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == ModuleListView {
		var cmd tea.Cmd
		m.modules, cmd = m.modules.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgOverviewLoaded:
		data := msg.data.(overviewData)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.overview = data.overview
		m.modules.SetItems(moduleItems(data.overview))
		if data.overview.Degraded {
			m.warning = "Progress could not be loaded. Percentages may be out of date."
		}
		return m, nil

	case MsgSessionOpened:
		data := msg.data.(sessionData)
		m.busy = false
		if data.session == nil {
			m.warning = describe(data.err)
			return m, nil
		}
		m.open(data.session)
		switch {
		case data.err != nil:
			m.warning = "Position could not be saved: " + describe(data.err)
		case data.session.Degraded:
			m.warning = "Progress unavailable. Showing this module from the start."
		}
		return m, nil

	case MsgAdvanced:
		data := msg.data.(advanceData)
		m.busy = false
		if data.err != nil {
			m.warning = "Progress not saved: " + describe(data.err) + ". Press n to retry."
			return m, nil
		}
		m.warning = ""
		switch data.outcome.Kind {
		case progress.OutcomeTerminal:
			m.view = CompleteView
			return m, m.loadOverview()
		case progress.OutcomeNextModule:
			m.notice = fmt.Sprintf("Finished %s", m.session.Module.Title)
		}
		m.open(data.session)
		return m, nil
	}
	return m, nil
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ModuleListView:
		return m.renderModuleList()
	case ReaderView:
		return m.renderReader()
	case CompleteView:
		return m.renderComplete()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modules.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.modules, cmd = m.modules.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case m.busy:
		return m, nil
	case key.Matches(msg, m.keys.open):
		if item, ok := m.modules.SelectedItem().(moduleItem); ok {
			m.busy = true
			return m, m.enter(item.row.Slug)
		}
	case key.Matches(msg, m.keys.restart):
		if item, ok := m.modules.SelectedItem().(moduleItem); ok {
			m.busy = true
			return m, m.jump(item.row.Slug)
		}
	case key.Matches(msg, m.keys.resume):
		m.busy = true
		return m, m.continueReading()
	}

	var cmd tea.Cmd
	m.modules, cmd = m.modules.Update(msg)
	return m, cmd
}

func (m *Model) handleReaderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ModuleListView
		m.session = nil
		m.notice = ""
		m.warning = ""
		return m, m.loadOverview()
	case key.Matches(msg, m.keys.next):
		if m.busy || m.session == nil {
			return m, nil
		}
		m.busy = true
		m.notice = ""
		return m, m.advance()
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m *Model) handleCompleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ModuleListView
		m.session = nil
		return m, m.loadOverview()
	}
	return m, nil
}

func (m *Model) open(s *progress.Session) {
	m.session = s
	m.view = ReaderView
	m.content.SetContent(s.Submodule().Content)
	m.content.GotoTop()
}

func (m *Model) loadOverview() tea.Cmd {
	return func() tea.Msg {
		o, err := m.tracker.Overview(m.ctx, m.userID)
		return overviewLoadedMsg(o, err)
	}
}

func (m *Model) enter(slug string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.tracker.Enter(m.ctx, m.userID, slug)
		return sessionOpenedMsg(s, err)
	}
}

func (m *Model) jump(slug string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.tracker.JumpToSlug(m.ctx, m.userID, slug)
		return sessionOpenedMsg(s, err)
	}
}

// continueReading opens the resume target without rewriting the pointer.
func (m *Model) continueReading() tea.Cmd {
	return func() tea.Msg {
		target, resolveErr := m.resolver.Continue(m.ctx, m.userID)
		s, err := m.tracker.SessionAt(m.ctx, m.userID, target.Slug, target.SubmoduleIndex)
		if err != nil {
			return sessionOpenedMsg(nil, err)
		}
		return sessionOpenedMsg(s, resolveErr)
	}
}

// advance works on a copy so a failed save leaves the displayed session untouched.
func (m *Model) advance() tea.Cmd {
	s := *m.session
	return func() tea.Msg {
		outcome, err := m.tracker.Advance(m.ctx, &s)
		return advancedMsg(&s, outcome, err)
	}
}

func (m *Model) renderModuleList() string {
	var b strings.Builder
	b.WriteString(m.modules.View())

	if m.overview != nil {
		fmt.Fprintf(&b, "\n%s", styles.ok.Render(fmt.Sprintf(
			"Average %d%% • %d mastered • %d/%d submodules",
			m.overview.AveragePercent, m.overview.Mastered,
			m.overview.CompletedSubmodules, m.overview.TotalSubmodules,
		)))
		if r := m.overview.Resume; r != nil {
			fmt.Fprintf(&b, "\nResume: %s, submodule %d", r.Module.Title, r.SubmoduleIndex+1)
		}
	}
	if m.warning != "" {
		fmt.Fprintf(&b, "\n%s", styles.warn.Render(m.warning))
	}

	helpKeys := []key.Binding{m.keys.open, m.keys.restart, m.keys.resume, m.keys.quit}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderReader() string {
	s := m.session
	if s == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(s.Module.Title))
	fmt.Fprintf(&b, "\n%s\n", styles.heading.Render(fmt.Sprintf(
		"%d/%d  %s", s.SubmoduleIndex+1, s.Module.Len(), s.Submodule().Title,
	)))
	fmt.Fprintf(&b, "%s %d%%\n\n", m.bar.ViewAs(float64(s.Percent())/100), s.Percent())
	b.WriteString(m.content.View())

	if m.notice != "" {
		fmt.Fprintf(&b, "\n%s", styles.ok.Render("✓ "+m.notice))
	}
	if m.warning != "" {
		fmt.Fprintf(&b, "\n%s", styles.warn.Render(m.warning))
	}
	if m.busy {
		fmt.Fprintf(&b, "\n%s", styles.help.Render("Saving..."))
	}

	helpKeys := []key.Binding{m.keys.next, m.keys.scrollDn, m.keys.back, m.keys.quit}
	fmt.Fprintf(&b, "\n\n%s", m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderComplete() string {
	title := styles.ok.Render("★ You have reached the end of the curriculum!")
	info := ""
	if m.overview != nil {
		info = fmt.Sprintf("\nAverage %d%% across %d modules", m.overview.AveragePercent, len(m.overview.Modules))
	}
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

// describe turns store and catalog errors into short user-facing text.
func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrStoreTimeout):
		return "the progress store timed out"
	case errors.Is(err, shared.ErrStoreUnavailable):
		return "the progress store is unavailable"
	case errors.Is(err, shared.ErrEmptyModule):
		return "this module has no submodules yet"
	case errors.Is(err, shared.ErrModuleNotFound):
		return "module not found"
	default:
		return err.Error()
	}
}
