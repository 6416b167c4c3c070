package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `  ___ _                        ___                _
 / __| |_ _ _ ___ __ _ _ __   / __| __ ___ _  _| |_
 \__ \  _| '_/ -_) _' | '  \  \__ \/ _/ _ \ || |  _|
 |___/\__|_| \___\__,_|_|_|_| |___/\__\___/\_,_|\__|`

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := max((m.width-4)/2, 30)

	sections := []string{
		logoStyle.Render(logo),
		subtitleStyle.Render(m.title),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.renderPipelinePanel(half),
			"  ",
			m.renderStatsPanel(half),
		),
		m.renderLogsPanel(m.width - 2),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q: stop and export • ?: help"))
	}

	return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderPipelinePanel lists the phases with their state
func (m *Model) renderPipelinePanel(width int) string {
	title := titleStyle.Render(" PHASES ")

	lines := make([]string, 0, len(pipeline)+2)
	for _, p := range pipeline {
		name := phaseTitle(p)
		switch m.phaseState(p) {
		case phaseActive:
			marker := m.spinner.View()
			if m.finished {
				marker = errorStyle.Render("■")
			}
			lines = append(lines, marker+" "+statsValueStyle.Render(name))
		case phaseDone:
			lines = append(lines, successStyle.Render("✓ "+name))
		case phaseSkipped:
			lines = append(lines, pendingStyle.Render("– "+name+" (skipped)"))
		default:
			lines = append(lines, pendingStyle.Render("· "+name))
		}
	}

	lines = append(lines, "", m.bar.ViewAs(m.Ratio()))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderStatsPanel renders the counters
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN ")

	stat := func(label, value string) string {
		return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
	}

	stats := []string{
		stat("Elapsed:", formatDuration(m.Elapsed())),
		stat("Live found:", fmt.Sprintf("%d", m.snap.LiveFound)),
		stat("Offline found:", fmt.Sprintf("%d", m.snap.OfflineFound)),
		stat("Profiles:", fmt.Sprintf("%d/%d", m.snap.Processed, m.snap.TotalExpected)),
	}
	if m.snap.Errors > 0 {
		stats = append(stats, warningStyle.Render(fmt.Sprintf("%d failed requests", m.snap.Errors)))
	}
	if m.cancelling && !m.finished {
		stats = append(stats, warningStyle.Render("Stopping..."))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(stats, "\n")),
	)
}

// renderLogsPanel renders the most recent log lines
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := max(len(m.logMessages)-8, 0)

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		message := log.Message
		if maxLen := width - 25; maxLen > 3 && len(message) > maxLen {
			message = message[:maxLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = pendingStyle.Render("No events yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q, ctrl+c  - Stop the search and export what was found
    ctrl+l     - Clear the log
    ?          - Toggle this help

  Phases:
    ` + successStyle.Render("✓") + `          - Finished
    ` + pendingStyle.Render("–") + `          - Skipped (offline search off or limit reached)
    ` + errorStyle.Render("■") + `          - Interrupted
`

	return panelStyle.Width(m.width - 2).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
