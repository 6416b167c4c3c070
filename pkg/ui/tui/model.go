package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"streamscout/pkg/models"
)

// pipeline is the order phases are shown in
var pipeline = []models.Phase{
	models.PhaseLiveSweep,
	models.PhaseOfflineSweep,
	models.PhaseEnrichment,
	models.PhaseComplete,
}

// Model is the dashboard state. It is only touched from the bubbletea
// event loop.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	title string
	limit int
	snap  models.CollectionProgress
	seen  map[models.Phase]bool

	clock     clockwork.Clock
	startTime time.Time
	endTime   time.Time

	width          int
	height         int
	showHelp       bool
	cancelling     bool
	finished       bool
	err            error
	onQuit         func()
	logMessages    []LogMessage
	maxLogMessages int
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates the dashboard for a search described by title with the
// given result limit. onQuit runs when the user asks to stop and should
// cancel the collection.
func NewModel(title string, limit int, clock clockwork.Clock, onQuit func()) *Model {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(twitchPurple)

	bar := progress.New(progress.WithGradient("#9146FF", "#00FFFF"))
	bar.Width = 40

	return &Model{
		spinner:        s,
		bar:            bar,
		title:          title,
		limit:          limit,
		seen:           make(map[models.Phase]bool),
		clock:          clock,
		startTime:      clock.Now(),
		onQuit:         onQuit,
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// ApplyProgress records a snapshot and logs phase transitions
func (m *Model) ApplyProgress(p models.CollectionProgress) {
	if p.Phase != m.snap.Phase && p.Phase != models.PhaseIdle {
		m.AddLogMessage("INFO", "Phase: "+phaseTitle(p.Phase))
	}
	if p.Errors > m.snap.Errors {
		m.AddLogMessage("WARN", fmt.Sprintf("%s truncated after a failed request", phaseTitle(p.Phase)))
	}
	m.snap = p
	m.seen[p.Phase] = true
}

// Finish marks the run as over
func (m *Model) Finish(err error) {
	m.finished = true
	m.err = err
	m.endTime = m.clock.Now()

	found := m.snap.LiveFound + m.snap.OfflineFound
	if err != nil {
		m.AddLogMessage("ERROR", fmt.Sprintf("Stopped with %d creators: %v", found, err))
		return
	}
	m.AddLogMessage("SUCCESS", fmt.Sprintf("Collected %d creators", found))
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.clock.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Ratio is the completion shown by the progress bar. It tracks creators
// found until enrichment starts, then profiles processed.
func (m *Model) Ratio() float64 {
	var done, total int
	switch m.snap.Phase {
	case models.PhaseEnrichment, models.PhaseComplete:
		done, total = m.snap.Processed, m.snap.TotalExpected
		if total == 0 && m.snap.Phase == models.PhaseComplete {
			return 1
		}
	default:
		done, total = m.snap.LiveFound+m.snap.OfflineFound, m.limit
	}
	if total <= 0 {
		return 0
	}
	return min(float64(done)/float64(total), 1)
}

// Elapsed is the run time so far, frozen once finished
func (m *Model) Elapsed() time.Duration {
	if m.finished {
		return m.endTime.Sub(m.startTime)
	}
	return m.clock.Since(m.startTime)
}

// phaseState classifies a pipeline entry for rendering
type phaseState int

const (
	phasePending phaseState = iota
	phaseActive
	phaseDone
	phaseSkipped
)

func (m *Model) phaseState(p models.Phase) phaseState {
	current := indexOf(m.snap.Phase)
	idx := indexOf(p)
	switch {
	case p == m.snap.Phase && p != models.PhaseComplete:
		return phaseActive
	case idx < current && m.seen[p]:
		return phaseDone
	case idx < current:
		return phaseSkipped
	case p == models.PhaseComplete && m.snap.Phase == models.PhaseComplete:
		return phaseDone
	}
	return phasePending
}

func indexOf(p models.Phase) int {
	for i, q := range pipeline {
		if q == p {
			return i
		}
	}
	return -1
}

func phaseTitle(p models.Phase) string {
	switch p {
	case models.PhaseLiveSweep:
		return "Live streams"
	case models.PhaseOfflineSweep:
		return "Offline channels"
	case models.PhaseEnrichment:
		return "Profiles"
	case models.PhaseComplete:
		return "Complete"
	}
	return "Starting"
}
