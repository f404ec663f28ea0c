// Package tui provides an interactive viewer for comparison rows.
// The table lists one row per commit; the panel below it shows every field
// of the selected row with statuses coloured.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"drone-compare/src/logger"
	"drone-compare/src/metrics"
)

// LoadStatus tracks whether rows are available yet.
type LoadStatus int

const (
	StatusLoading LoadStatus = iota
	StatusReady
	StatusFailed
)

// ResultMsg delivers the rows of a finished comparison.
type ResultMsg struct {
	Title string
	Rows  []metrics.Row
	Err   error
}

// MainModel is the Bubble Tea model for the row viewer.
type MainModel struct {
	header         Header
	table          table.Model
	detailViewport viewport.Model
	progress       ProgressModel
	styles         *StyleConfig

	items    []Item
	filtered []Item

	status   LoadStatus
	err      error
	loadedAt time.Time
	now      func() time.Time

	width         int
	height        int
	ready         bool
	detailFocused bool
	searchMode    bool
	searchQuery   string
}

// NewModel creates a viewer over rows that are already available.
func NewModel(title string, rows []metrics.Row) MainModel {
	m := newModel(title)
	m.setRows(rows)
	return m
}

// NewLoadingModel creates a viewer that shows progress until a ResultMsg arrives.
func NewLoadingModel(title string) MainModel {
	return newModel(title)
}

func newModel(title string) MainModel {
	styles := DefaultStyles()

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.BorderColor).
		BorderBottom(true).
		Foreground(styles.PrimaryBlue).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.PrimaryBlue).
		Background(styles.SelectedColor).
		Bold(true)

	t := table.New(
		table.WithColumns(tableColumns),
		table.WithFocused(true),
		table.WithStyles(ts),
	)

	return MainModel{
		header:         NewHeaderWithStyles(title, styles),
		table:          t,
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(),
		styles:         styles,
		status:         StatusLoading,
		now:            time.Now,
	}
}

func (m *MainModel) setRows(rows []metrics.Row) {
	m.items = toItems(rows)
	m.status = StatusReady
	m.loadedAt = m.now()
	m.applyFilter()
}

// Init starts the spinner while rows are loading.
func (m MainModel) Init() tea.Cmd {
	if m.status == StatusLoading {
		return SpinnerTick()
	}
	return nil
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case ProgressMsg, SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case ResultMsg:
		if msg.Err != nil {
			m.status = StatusFailed
			m.err = msg.Err
			return m, nil
		}
		if msg.Title != "" {
			m.header.SetTitle(msg.Title)
		}
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "complete"})
		m.setRows(msg.Rows)
		if m.ready {
			m.resizeComponents()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchMode {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if m.status != StatusReady {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if m.detailFocused {
			m.detailFocused = false
			m.table.Focus()
		}
		return m, nil
	case "enter":
		if len(m.filtered) > 0 {
			m.detailFocused = !m.detailFocused
			if m.detailFocused {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.detailFocused {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "0", "1", "2", "3":
		m.header.SetFilter(Filter(msg.String()[0] - '0'))
		m.applyFilter()
		return m, nil
	}

	prev := m.table.Cursor()
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updateDetailContent()
	}
	return m, cmd
}

func (m MainModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if runes := []rune(m.searchQuery); len(runes) > 0 {
			m.searchQuery = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	}

	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

// selected returns the item under the table cursor.
func (m MainModel) selected() (Item, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return Item{}, false
	}
	return m.filtered[i], true
}

// Run displays rows until the user quits.
func Run(title string, rows []metrics.Row) error {
	_, err := tea.NewProgram(NewModel(title, rows), tea.WithAltScreen()).Run()
	return err
}

// RunLoading shows the loading screen while load runs, then its rows.
// Lines logged by load appear as progress. Quitting early cancels ctx
// for load.
func RunLoading(ctx context.Context, title string, load func(ctx context.Context, log logger.Logger) (string, []metrics.Row, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewLoadingModel(title), tea.WithAltScreen())
	go func() {
		t, rows, err := load(ctx, NewProgressLogger(p.Send))
		p.Send(ResultMsg{Title: t, Rows: rows, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(MainModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
