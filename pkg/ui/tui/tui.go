package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
)

// TUI is a full screen view of a fetch run. It implements
// downloader.Observer, so the loop can run in another goroutine while
// Start owns the terminal.
type TUI struct {
	program *tea.Program
}

// NewTUI creates the screen. onQuit is called when the user quits before
// the run has finished, typically to cancel the run context.
func NewTUI(onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{program: tea.NewProgram(&model, opts...)}
}

// Start runs the event loop until Stop is called or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop ends the event loop
func (t *TUI) Stop() {
	t.program.Quit()
}

func (t *TUI) OnStart(total int) {
	t.program.Send(StartMsg{Total: total})
}

func (t *TUI) OnFetch(id int, c dataset.Coordinate) {
	t.program.Send(FetchMsg{ID: id, Coordinate: c})
}

func (t *TUI) OnResult(r downloader.Result, done, total int) {
	t.program.Send(ResultMsg{Result: r, Done: done, Total: total})
}

func (t *TUI) OnFinish(s downloader.Summary) {
	t.program.Send(FinishMsg{Summary: s})
}
