package tui

import (
	"github.com/charmbracelet/lipgloss"

	"drone-compare/src/drone"
)

// StyleConfig holds all customizable style colors for the row viewer.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Failure lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		Success:        lipgloss.Color("#34A853"),
		Warning:        lipgloss.Color("#FBBC04"),
		Failure:        lipgloss.Color("#EA4335"),
	}
}

// StatusColor returns the color used to render a build status.
func (s *StyleConfig) StatusColor(status drone.Status) lipgloss.Color {
	switch status {
	case drone.StatusSuccess:
		return s.Success
	case drone.StatusSkipped, drone.StatusRunning, drone.StatusPending:
		return s.Warning
	case drone.StatusUnknown:
		return s.TextSecondary
	default:
		return s.Failure
	}
}

// StatusStyle renders a status in its color.
func (s *StyleConfig) StatusStyle(status drone.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.StatusColor(status)).Bold(true)
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns a bordered panel style. Focused panels get the accent border.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.AccentBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}
