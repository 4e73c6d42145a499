package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// resultMsg signals that the background work finished.
type resultMsg struct{}

// spinnerModel animates a single progress line while work runs elsewhere.
type spinnerModel struct {
	spin   spinner.Model
	label  string
	cancel context.CancelFunc
	done   bool
}

func newSpinnerModel(label string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	return spinnerModel{spin: s, label: label, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.done = true

		return m, tea.Quit
	case tea.KeyMsg:
		// The program owns the terminal, so ctrl+c arrives as a key and must
		// be turned back into a cancellation.
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			m.cancel()
		}

		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}

	return m.spin.View() + m.label
}

// runWithSpinner runs fn while animating a progress line on stderr. The
// spinner is skipped in machine-output mode and when stderr is not a
// terminal.
func runWithSpinner[T any](ctx context.Context, label string, quiet bool, stderr io.Writer, fn func(context.Context) (T, error)) (T, error) {
	if quiet || !isTerminal(stderr) {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(label, cancel), tea.WithOutput(stderr))

	var (
		res T
		err error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)

		res, err = fn(runCtx)
		p.Send(resultMsg{})
	}()

	// A terminal setup failure only loses the animation; the work itself
	// still runs to completion.
	_, _ = p.Run()
	<-done

	return res, err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
