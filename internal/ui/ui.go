// Package ui implements a live sync progress view using bubbletea's Elm
// architecture.
//
// The [Model] runs the sync engine in a background goroutine and consumes
// its progress channel, rendering the current phase with a spinner. When the
// run finishes it switches to a summary view. Progress delivery is
// non-blocking on the engine side, so a slow terminal never stalls a sync.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/statx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine tasks.SyncEngine
	opts   tasks.SyncOptions

	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	itemsSeen    int

	result *tasks.SyncResult
	err    error

	help help.Model
	keys keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	result *tasks.SyncResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.SyncEngine, opts tasks.SyncOptions) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		ctx:     ctx,
		view:    SyncView,
		engine:  engine,
		opts:    opts,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the sync in the background and begins consuming progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if m.progress.Phase == tasks.FetchMedia || m.progress.Phase == tasks.FetchHistory {
			m.itemsSeen = m.progress.Step
		}
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.Sync(m.ctx, m.progressChan, m.opts)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing media server stats")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLibraries:
		phase = "Discovering libraries..."
	case tasks.FetchMedia:
		phase = fmt.Sprintf("Fetching media (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FetchChildren:
		phase = "Expanding seasons and albums..."
	case tasks.FetchHistory:
		phase = fmt.Sprintf("Fetching history (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Cleanup:
		phase = "Removing stale items..."
	case tasks.Finalize:
		phase = "Committing..."
	default:
		phase = "Connecting..."
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s %s\n%s\n\n%s",
		title, m.spinner.View(), phase, styles.help.Render(m.progress.Message), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Sync failed, cache unchanged: %v", m.err)), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf("\nRun: %s\n", m.result.RunID)
	if m.result.FullSync {
		info += fmt.Sprintf("Libraries: %d\nItems written: %d\nStale removed: %d\n",
			m.result.LibrariesSynced, m.result.ItemsSynced, m.result.StaleRemoved)
	}
	info += fmt.Sprintf("New history rows: %d\nDuration: %s",
		m.result.NewHistoryRows, m.result.Duration.Round(10*time.Millisecond))

	return fmt.Sprintf("%s%s\n\n%s", title, info, helpView)
}
