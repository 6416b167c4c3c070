package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"streamscout/pkg/models"
)

const barWidth = 20

var phaseLabels = map[models.Phase]string{
	models.PhaseIdle:         "starting",
	models.PhaseLiveSweep:    "live",
	models.PhaseOfflineSweep: "offline",
	models.PhaseEnrichment:   "profiles",
	models.PhaseComplete:     "done",
}

// ProgressDisplay renders collection progress as a single updating line
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	clock     clockwork.Clock
	limit     int
	last      models.CollectionProgress
	startTime time.Time
	lastWidth int
	isDebug   bool
}

// NewProgressDisplay creates a new progress display. limit is the number of
// creators requested. In debug mode the line is replaced by one entry per
// phase so it does not fight with log output.
func NewProgressDisplay(out io.Writer, limit int, debug bool) *ProgressDisplay {
	return newProgressDisplay(out, limit, debug, clockwork.NewRealClock())
}

func newProgressDisplay(out io.Writer, limit int, debug bool, clock clockwork.Clock) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		clock:     clock,
		limit:     limit,
		startTime: clock.Now(),
		isDebug:   debug,
	}
}

// Progress accepts a snapshot from the collector
func (p *ProgressDisplay) Progress(snap models.CollectionProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := snap.Phase != p.last.Phase
	p.last = snap

	if p.isDebug {
		if changed {
			fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), phaseLabels[snap.Phase])
		}
		return
	}
	p.printProgress()
}

// Log prints a message above the progress line
func (p *ProgressDisplay) Log(level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	color := Dim
	switch level {
	case "ERROR":
		color = Red
	case "WARN":
		color = Yellow
	case "SUCCESS":
		color = Green
	}
	p.clearLine()
	fmt.Fprintln(p.out, color(message))
	if !p.isDebug && p.last.Phase != "" {
		p.printProgress()
	}
}

// printProgress redraws the status line. Callers hold p.mu.
func (p *ProgressDisplay) printProgress() {
	done, total := p.counts()
	line := fmt.Sprintf("%s [%s] %d/%d • live %d • offline %d • %s",
		Cyan(fmt.Sprintf("%-8s", phaseLabels[p.last.Phase])),
		bar(done, total),
		done,
		total,
		p.last.LiveFound,
		p.last.OfflineFound,
		formatDuration(p.clock.Since(p.startTime)),
	)
	if p.last.Errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.last.Errors)))
	}

	p.clearLine()
	fmt.Fprint(p.out, line)
	p.lastWidth = len(line)
}

func (p *ProgressDisplay) clearLine() {
	if p.lastWidth > 0 {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.lastWidth))
		p.lastWidth = 0
	}
}

// counts picks the figure the bar tracks: profiles processed while enriching,
// creators found before that.
func (p *ProgressDisplay) counts() (int, int) {
	if p.last.Phase == models.PhaseEnrichment || p.last.Phase == models.PhaseComplete {
		return p.last.Processed, p.last.TotalExpected
	}
	return p.last.LiveFound + p.last.OfflineFound, p.limit
}

// Finish ends the progress line with a one-line summary
func (p *ProgressDisplay) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLine()
	elapsed := formatDuration(p.clock.Since(p.startTime))
	found := p.last.LiveFound + p.last.OfflineFound

	if err != nil {
		fmt.Fprintf(p.out, "%s Stopped after %s with %d creators: %v\n", Yellow("⚠"), elapsed, found, err)
		return
	}
	fmt.Fprintf(p.out, "%s Collected %d creators in %s\n", Green("✓"), found, elapsed)
	if p.last.Errors > 0 {
		fmt.Fprintf(p.out, "  %s %d requests failed\n", Dim("•"), p.last.Errors)
	}
}

func bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = min(done*barWidth/total, barWidth)
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
