package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
// and ignoring ANSI escape sequences.
func VisualWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

// Truncate truncates plain text to maxLen characters (visual width) with optional ellipsis
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}

	if VisualWidth(s) > maxLen {
		if ellipsis && maxLen > 3 {
			return runewidth.Truncate(s, maxLen-3, "") + "..."
		}
		return runewidth.Truncate(s, maxLen, "")
	}
	return s
}

// TruncateAndPad truncates text with optional ellipsis and pads to exact width.
// Used for aligned label columns in the detail panel.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	if w := VisualWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Wrap wraps text to width, breaking on word boundaries when possible and
// mid-word otherwise. Styled text keeps its escape sequences.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "/")
}
