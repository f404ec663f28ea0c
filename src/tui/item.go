package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"drone-compare/src/metrics"
)

// Filter narrows the rows shown in the table.
type Filter int

const (
	FilterAll Filter = iota
	FilterFailed
	FilterSlow
	FilterHealthy
)

var filterNames = []string{"ALL", "FAILED", "SLOW", "OK"}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return "ALL"
}

// Item is one comparison row as displayed in the table.
type Item struct {
	Row metrics.Row
}

// Matches reports whether the item passes filter f.
func (i Item) Matches(f Filter) bool {
	switch f {
	case FilterFailed:
		return i.Row.Failed()
	case FilterSlow:
		return !i.Row.Failed() && !i.Row.AwaitWithin
	case FilterHealthy:
		return !i.Row.Failed() && i.Row.AwaitWithin
	default:
		return true
	}
}

// Contains reports whether query (lower case) appears in the PR number,
// commit, build numbers or any status.
func (i Item) Contains(query string) bool {
	fields := []string{
		i.Row.PRNumber,
		i.Row.Commit,
		strconv.Itoa(i.Row.Gen1Build),
		strconv.Itoa(i.Row.Gen2Build),
		i.Row.UnitTestStatus.String(),
		i.Row.AwaitTestStatus.String(),
		i.Row.SystemStatus.String(),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// tableColumns are the columns shown in the row table. The full URL and the
// threshold flag are left to the detail panel.
var tableColumns = []table.Column{
	{Title: "PR", Width: 6},
	{Title: "Commit", Width: 10},
	{Title: "D1", Width: 6},
	{Title: "D2", Width: 6},
	{Title: "Unit", Width: 8},
	{Title: "Await", Width: 8},
	{Title: "System", Width: 8},
	{Title: "Unit s", Width: 7},
	{Title: "D2 s", Width: 7},
	{Title: "Delta s", Width: 7},
}

// tableRow renders the item as plain table cells.
func (i Item) tableRow() table.Row {
	return table.Row{
		i.Row.PRNumber,
		i.Row.Commit,
		strconv.Itoa(i.Row.Gen1Build),
		strconv.Itoa(i.Row.Gen2Build),
		i.Row.UnitTestStatus.String(),
		i.Row.AwaitTestStatus.String(),
		i.Row.SystemStatus.String(),
		strconv.FormatInt(i.Row.UnitTestElapsed, 10),
		strconv.FormatInt(i.Row.TotalElapsed, 10),
		strconv.FormatInt(i.Row.AwaitDelta, 10),
	}
}

// toItems wraps rows for display.
func toItems(rows []metrics.Row) []Item {
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = Item{Row: row}
	}
	return items
}
