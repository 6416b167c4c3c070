package ui

import "streamscout/pkg/models"

// Reporter renders collection progress. ProgressDisplay and tui.TUI both
// implement it.
type Reporter interface {
	Progress(p models.CollectionProgress)
	Log(level, message string)
	Finish(err error)
}
