package tui

import "github.com/charmbracelet/lipgloss"

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	ghostStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Background(lipgloss.Color("#2E3A59"))
	cursorStyle    = pendingStyle.Underline(true)
	glyphStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	resultStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(0, 2)
)
