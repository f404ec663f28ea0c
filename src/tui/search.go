package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
)

// applyFilter filters items by the header filter and the search query and
// refreshes the table and detail panel.
func (m *MainModel) applyFilter() {
	filter := m.header.GetFilter()
	query := strings.ToLower(m.searchQuery)

	m.filtered = make([]Item, 0, len(m.items))
	for _, item := range m.items {
		if !item.Matches(filter) {
			continue
		}
		if query != "" && !item.Contains(query) {
			continue
		}
		m.filtered = append(m.filtered, item)
	}

	rows := make([]table.Row, len(m.filtered))
	for i, item := range m.filtered {
		rows[i] = item.tableRow()
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
	m.updateDetailContent()
}
