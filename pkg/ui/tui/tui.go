package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"streamscout/pkg/models"
)

// TUI runs the dashboard program next to a collection run
type TUI struct {
	program *tea.Program
	model   *Model

	done chan struct{}
	once sync.Once
	err  error
}

// NewTUI creates a new TUI instance. opts are passed to bubbletea, e.g.
// tea.WithInput and tea.WithOutput in tests.
func NewTUI(model *Model, opts ...tea.ProgramOption) *TUI {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background
func (t *TUI) Start() {
	go func() {
		defer close(t.done)
		if _, err := t.program.Run(); err != nil {
			t.err = fmt.Errorf("dashboard failed: %w", err)
		}
	}()
	t.program.Send(TickMsg{})
}

// Wait blocks until the program has exited
func (t *TUI) Wait() error {
	<-t.done
	return t.err
}

// Progress forwards a collection snapshot
func (t *TUI) Progress(p models.CollectionProgress) {
	t.program.Send(ProgressMsg(p))
}

// Log adds a line to the log panel
func (t *TUI) Log(level, message string) {
	t.program.Send(LogMsg{Level: level, Message: message})
}

// Finish renders the outcome and waits for the program to exit
func (t *TUI) Finish(err error) {
	t.once.Do(func() {
		t.program.Send(DoneMsg{Err: err})
	})
	_ = t.Wait()
}
