package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/commitgen/pkg/deliver"
)

// Centralized style definitions for terminal output.
var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))            // yellow
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))            // magenta
	okMarkStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
)

// stderrNotifier renders delivery notices with severity styling.
type stderrNotifier struct {
	w io.Writer
}

func newStderrNotifier(w io.Writer) *stderrNotifier {
	return &stderrNotifier{w: w}
}

// Notify implements deliver.Notifier.
func (n *stderrNotifier) Notify(severity deliver.Severity, message string) {
	switch severity {
	case deliver.SeverityWarning:
		fmt.Fprintln(n.w, warningStyle.Render(message))
	case deliver.SeverityError:
		fmt.Fprintln(n.w, errorStyle.Render(message))
	default:
		fmt.Fprintln(n.w, message)
	}
}
