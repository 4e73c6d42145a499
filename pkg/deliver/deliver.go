// Package deliver routes a finished invocation to its side effects: the
// generated message into a source control repository's pending commit
// message field (clipboard as fallback), and exactly one user notice per
// terminal result.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/germanamz/commitgen/pkg/launcher"
)

// NoChangesMarker is the failure-text substring that downgrades the notice
// from error to warning severity.
const NoChangesMarker = "No changes detected"

// Severity of a user notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Repository is a source control repository with a writable pending commit
// message field.
type Repository interface {
	SetPendingMessage(ctx context.Context, message string) error
}

// SourceControl exposes the repositories of a source control integration.
type SourceControl interface {
	Repositories(ctx context.Context) ([]Repository, error)
}

// Clipboard is the fallback delivery target when no repository is available.
type Clipboard interface {
	Write(text string) error
}

// SystemClipboard writes through the OS clipboard.
type SystemClipboard struct{}

// Write implements Clipboard.
func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}

// Notifier shows a notice to the user.
type Notifier interface {
	Notify(severity Severity, message string)
}

// Deliverer routes terminal results. SourceControl may be nil when no
// integration is present; Clipboard then receives successful messages.
type Deliverer struct {
	SourceControl SourceControl
	Clipboard     Clipboard
	Notifier      Notifier
}

// New creates a Deliverer that falls back to the system clipboard.
func New(sc SourceControl, notifier Notifier) *Deliverer {
	return &Deliverer{
		SourceControl: sc,
		Clipboard:     SystemClipboard{},
		Notifier:      notifier,
	}
}

// Deliver routes one terminal result to its side effect and emits exactly
// one notice. Failures and cancellations only notify; an error is returned
// only when a successful message could not be placed anywhere.
func (d *Deliverer) Deliver(ctx context.Context, res *launcher.Result) error {
	switch res.State {
	case launcher.StateSucceeded:
		return d.deliverMessage(ctx, res.Message())

	case launcher.StateCancelled:
		d.notify(SeverityInfo, "Commit message generation cancelled")
		return nil

	case launcher.StateFailed:
		text := res.FailureText()
		if strings.Contains(text, NoChangesMarker) {
			d.notify(SeverityWarning, text)
		} else {
			d.notify(SeverityError, "Commit message generation failed: "+text)
		}
		return nil

	default:
		return fmt.Errorf("deliver: result in non-terminal state %s", res.State)
	}
}

// deliverMessage writes the message into the first available repository's
// pending commit message field, or copies it to the clipboard when no
// repository takes it.
func (d *Deliverer) deliverMessage(ctx context.Context, message string) error {
	if d.SourceControl != nil {
		repos, err := d.SourceControl.Repositories(ctx)
		if err == nil && len(repos) > 0 {
			if err := repos[0].SetPendingMessage(ctx, message); err == nil {
				d.notify(SeverityInfo, "Commit message set in source control: "+message)
				return nil
			}
			// A repository that rejects the write falls back to the clipboard.
		}
	}

	if d.Clipboard == nil {
		d.notify(SeverityError, "Generated commit message could not be delivered")
		return errors.New("deliver: no delivery target available")
	}

	if err := d.Clipboard.Write(message); err != nil {
		d.notify(SeverityError, "Failed to copy commit message to clipboard: "+err.Error())
		return fmt.Errorf("deliver: copy to clipboard: %w", err)
	}

	d.notify(SeverityInfo, "Commit message copied to clipboard: "+message)
	return nil
}

func (d *Deliverer) notify(severity Severity, message string) {
	if d.Notifier != nil {
		d.Notifier.Notify(severity, message)
	}
}
