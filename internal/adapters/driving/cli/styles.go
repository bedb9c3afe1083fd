package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Colour palette shared by all commands.
var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorAccent  = lipgloss.Color("#06B6D4") // Cyan
	colorMuted   = lipgloss.Color("#6C7086") // Medium gray
	colorSuccess = lipgloss.Color("#A6E3A1") // Green
	colorWarning = lipgloss.Color("#F9E2AF") // Yellow
	colorError   = lipgloss.Color("#F38BA8") // Red
)

// Pre-configured styles. lipgloss drops colour when output is not a terminal.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	answerStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

// stateStyle picks a style for an upload or ingestion state.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "completed":
		return successStyle
	case "error", "failed":
		return errorStyle
	case "failed_to_confirm":
		return warningStyle
	default:
		return mutedStyle
	}
}
