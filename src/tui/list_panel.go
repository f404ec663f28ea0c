package tui

// renderListPanel renders the row table with a border.
// Note: table size is set in resizeComponents(), not here during render
func (m MainModel) renderListPanel(width int) string {
	return m.styles.PanelStyle(!m.detailFocused).
		Width(width).
		Render(m.table.View())
}
