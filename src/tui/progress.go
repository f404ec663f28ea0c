package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Banner lines for the loading screen
var banner = []string{
	"drone1 ──┐",
	"         ├──▶ compare",
	"drone2 ──┘",
}

// Gradient colors from light (top) to dark (bottom)
var bannerGradientColors = []string{
	"#5DADE2",
	"#3498DB",
	"#2874A6",
}

// Spinner frames for the loading animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressMsg updates progress display
type ProgressMsg struct {
	Stage   string
	Current int
	Total   int
}

// SpinnerTickMsg triggers spinner animation frame advance
type SpinnerTickMsg time.Time

type ProgressModel struct {
	stage        string
	current      int
	total        int
	done         bool
	spinnerFrame int
}

func NewProgressModel() ProgressModel {
	return ProgressModel{}
}

// SpinnerTick returns a command that sends SpinnerTickMsg after a delay
func SpinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		if msg.Stage == "complete" {
			m.done = true
		}
	case SpinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		if !m.done {
			return m, SpinnerTick()
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var lines []string
	for i, line := range banner {
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(bannerGradientColors[i%len(bannerGradientColors)])).
			Bold(true)
		lines = append(lines, style.Render(line))
	}
	logo := strings.Join(lines, "\n")

	if m.done {
		status := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓ Complete")
		return lipgloss.JoinVertical(lipgloss.Center, logo, "", status)
	}

	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Render(spinnerFrames[m.spinnerFrame])

	var statusLine string
	if m.total > 0 {
		pct := float64(m.current) / float64(m.total) * 100
		statusLine = fmt.Sprintf("%s %s (%d/%d, %.0f%%)", spinner, m.stage, m.current, m.total, pct)
	} else if m.stage != "" {
		statusLine = fmt.Sprintf("%s %s...", spinner, m.stage)
	} else {
		statusLine = fmt.Sprintf("%s Loading...", spinner)
	}

	return lipgloss.JoinVertical(lipgloss.Center, logo, "", statusLine)
}

// ProgressLogger turns log lines into progress updates for a running program.
// Debug lines are dropped.
type ProgressLogger struct {
	send func(tea.Msg)
}

// NewProgressLogger returns a logger that forwards to send, typically
// (*tea.Program).Send.
func NewProgressLogger(send func(tea.Msg)) *ProgressLogger {
	return &ProgressLogger{send: send}
}

func (p *ProgressLogger) Info(msg string, args ...interface{}) {
	p.send(ProgressMsg{Stage: fmt.Sprintf(msg, args...)})
}

func (p *ProgressLogger) Warn(msg string, args ...interface{}) {
	p.send(ProgressMsg{Stage: fmt.Sprintf(msg, args...)})
}

func (p *ProgressLogger) Error(msg string, args ...interface{}) {
	p.send(ProgressMsg{Stage: fmt.Sprintf(msg, args...)})
}

func (p *ProgressLogger) Debug(msg string, args ...interface{}) {}
