package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	tableHeight  int
	detailHeight int
	panelWidth   int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
// This centralizes the layout math to ensure consistency across render and resize.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// Account for: header + help line (1) + two panel borders (2 each)
	available := m.height - headerHeight - 1 - 4

	// Stacked layout: row table (40%) above the detail panel (60%)
	tableHeight := max(3, available*2/5)
	detailHeight := max(3, available-tableHeight)

	return panelDimensions{
		tableHeight:  tableHeight,
		detailHeight: detailHeight,
		panelWidth:   m.width - 2,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	switch m.status {
	case StatusLoading:
		centered := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(m.progress.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, centered)

	case StatusFailed:
		msg := lipgloss.NewStyle().
			Foreground(m.styles.Failure).
			Padding(1, 2).
			Width(m.width).
			Render(fmt.Sprintf("Comparison failed: %v", m.err))
		return lipgloss.JoinVertical(lipgloss.Left, header, msg, m.styles.HelpStyle().Render("q: Quit"))
	}

	if len(m.items) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(m.styles.TextSecondary).
			Padding(1, 2).
			Render("No commits were built on both servers in this window.")
		return lipgloss.JoinVertical(lipgloss.Left, header, empty, m.renderHelpText())
	}

	dims := m.calculateDimensions()
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.renderListPanel(dims.panelWidth),
		m.renderDetailPanel(dims.panelWidth, dims.detailHeight),
		m.renderHelpText(),
	)
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var helpText string
	if m.detailFocused {
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("Esc"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	} else {
		helpText = fmt.Sprintf("%s: Nav %s %s: All/Failed/Slow/OK %s %s: Detail %s %s %s",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("0-3"), sepStyle.Render("•"),
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("/"), keyStyle.Render("q"))
	}

	footer := fmt.Sprintf("%s of %s rows • loaded %s",
		humanize.Comma(int64(len(m.filtered))),
		humanize.Comma(int64(len(m.items))),
		humanize.Time(m.loadedAt))

	return m.styles.HelpStyle().Render(helpText + sepStyle.Render("  "+footer))
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.table.SetWidth(dims.panelWidth)
	m.table.SetHeight(dims.tableHeight)

	m.detailViewport.Width = dims.panelWidth
	m.detailViewport.Height = dims.detailHeight
	m.updateDetailContent()
}
