package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	twitchPurple = lipgloss.Color("#9146FF")
	neonCyan     = lipgloss.Color("#00FFFF")
	neonGreen    = lipgloss.Color("#39FF14")
	neonYellow   = lipgloss.Color("#FFFF00")
	neonOrange   = lipgloss.Color("#FF6700")
	alertRed     = lipgloss.Color("#FF0000")
	darkBg       = lipgloss.Color("#0E0E10")
	dimWhite     = lipgloss.Color("#B0B0B0")

	baseStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	logoStyle = lipgloss.NewStyle().
			Foreground(twitchPurple).
			Bold(true).
			Padding(1, 0, 0, 0)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(twitchPurple).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(twitchPurple).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// levelColor maps a log level to its accent
func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR":
		return alertRed
	case "WARN":
		return neonOrange
	case "SUCCESS":
		return neonGreen
	case "INFO":
		return neonCyan
	}
	return dimWhite
}
