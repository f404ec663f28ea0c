package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"drone-compare/src/drone"
)

// labelWidth aligns the field labels in the detail panel.
const labelWidth = 16

// renderDetail renders every field of a row
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	row := item.Row
	var content strings.Builder

	labelStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	label := func(s string) string {
		return labelStyle.Render(TruncateAndPad(s, labelWidth, false))
	}
	status := func(s drone.Status) string {
		return m.styles.StatusStyle(s).Render(s.String())
	}

	title := Truncate(fmt.Sprintf("PR #%s • %s", row.PRNumber, row.Commit), maxWidth, true)
	fmt.Fprintln(&content, m.styles.TitleStyle().UnsetPadding().Render(title))
	if row.PRURL != "" {
		fmt.Fprintln(&content, labelStyle.Faint(true).Render(Wrap(row.PRURL, maxWidth)))
	}
	fmt.Fprintln(&content)

	fmt.Fprintf(&content, "%s%d\n", label("Drone 1 build"), row.Gen1Build)
	fmt.Fprintf(&content, "%s%d\n", label("Drone 2 build"), row.Gen2Build)
	fmt.Fprintf(&content, "%s%s  %s\n", label("Unit tests"), status(row.UnitTestStatus), formatSeconds(row.UnitTestElapsed))
	fmt.Fprintf(&content, "%s%s\n", label("Await tests"), status(row.AwaitTestStatus))
	fmt.Fprintf(&content, "%s%s\n", label("System status"), status(row.SystemStatus))
	fmt.Fprintf(&content, "%s%s\n", label("Drone 2 total"), formatSeconds(row.TotalElapsed))

	within := lipgloss.NewStyle().Foreground(m.styles.Success).Render("within threshold")
	if !row.AwaitWithin {
		within = lipgloss.NewStyle().Foreground(m.styles.Warning).Render("outside threshold")
	}
	fmt.Fprintf(&content, "%s%s  %s\n", label("Await delta"), formatSeconds(row.AwaitDelta), within)

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent() {
	item, ok := m.selected()
	if !ok {
		m.detailViewport.SetContent("")
		return
	}
	// Subtract a small amount for internal padding.
	maxWidth := max(10, m.detailViewport.Width-2)
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the bottom panel with the detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	style := m.styles.PanelStyle(m.detailFocused).
		Width(width).
		Height(height)

	if _, ok := m.selected(); !ok {
		return style.
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.styles.TextSecondary).
			Faint(true).
			Render("No rows match the current filter")
	}
	return style.Render(m.detailViewport.View())
}

// formatSeconds renders a duration in seconds with a readable form alongside.
func formatSeconds(s int64) string {
	return fmt.Sprintf("%ds (%s)", s, time.Duration(s)*time.Second)
}
