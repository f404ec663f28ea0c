package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Header represents the top status bar component.
type Header struct {
	title       string
	filter      Filter
	searchQuery string
	searchMode  bool
	styles      *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(title string) Header {
	return NewHeaderWithStyles(title, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(title string, styles *StyleConfig) Header {
	return Header{
		title:  title,
		filter: FilterAll,
		styles: styles,
	}
}

// SetTitle replaces the title, e.g. once a run has finished.
func (h *Header) SetTitle(title string) {
	h.title = title
}

// SetFilter sets the current filter
func (h *Header) SetFilter(filter Filter) {
	h.filter = filter
}

// GetFilter returns the current filter
func (h Header) GetFilter() Filter {
	return h.filter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	h.filter = (h.filter + 1) % Filter(len(filterNames))
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	title := sectionStyle.Render(h.title)
	filter := sectionStyle.Render(fmt.Sprintf("Rows: %s", h.filter))

	var searchText string
	if h.searchMode {
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	} else if h.searchQuery != "" {
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	} else {
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, title, filter, searchStyle.Render(searchText))
	content = ansi.Truncate(content, width, "")

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	return headerStyle.Render(content)
}
