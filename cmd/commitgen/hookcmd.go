package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/germanamz/commitgen/pkg/deliver"
	"github.com/germanamz/commitgen/pkg/generator"
	"github.com/germanamz/commitgen/pkg/hook"
	"github.com/germanamz/commitgen/pkg/launcher"
)

// messageFileSource exposes the hook's message file as the lone repository
// of a source control integration.
type messageFileSource struct {
	file hook.MessageFile
}

func (s messageFileSource) Repositories(context.Context) ([]deliver.Repository, error) {
	return []deliver.Repository{s.file}, nil
}

// runHook is the prepare-commit-msg entry point. args holds the message
// file path, the commit source, and an optional commit sha, as git passes
// them. A hook must never block the commit, so every failure is downgraded
// to a warning and exit 0.
func runHook(ctx context.Context, args []string, opts generateOptions, stderr io.Writer) int {
	msgFile := args[0]

	source := ""
	if len(args) > 1 {
		source = args[1]
	}

	if reason := hook.SkipReason(source); reason != "" {
		if opts.verbose {
			fmt.Fprintln(stderr, dimStyle.Render("commitgen: skipping: "+reason))
		}

		return 0
	}

	notifier := newStderrNotifier(stderr)

	if err := loadDotEnv(opts.envFile); err != nil {
		notifier.Notify(deliver.SeverityWarning, "commitgen: "+err.Error())
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		notifier.Notify(deliver.SeverityWarning, "commitgen: "+err.Error())
		return 0
	}

	// Staging files inside prepare-commit-msg would change what is being
	// committed, so auto-stage is forced off here.
	gen, _, err := buildGenerator(cfg, opts, false)
	if err != nil {
		notifier.Notify(deliver.SeverityWarning, "commitgen: "+err.Error())
		return 0
	}

	res, err := gen.Run(ctx)
	if err != nil {
		if errors.Is(err, generator.ErrNoChanges) {
			notifier.Notify(deliver.SeverityWarning, err.Error())
		} else {
			notifier.Notify(deliver.SeverityWarning, "commitgen: "+err.Error())
		}

		return 0
	}

	d := &deliver.Deliverer{
		SourceControl: messageFileSource{file: hook.MessageFile{Path: msgFile}},
		Notifier:      notifier,
	}
	outcome := &launcher.Result{
		State:   launcher.StateSucceeded,
		Payload: launcher.SuccessPayload(res.Message),
	}

	// Delivery errors have already been reported through the notifier.
	_ = d.Deliver(ctx, outcome)

	return 0
}

// runManageHook installs or removes the prepare-commit-msg hook.
func runManageHook(ctx context.Context, install bool, repoPath string, stdout, stderr io.Writer) int {
	m := hook.NewManager(repoPath)

	// Pin the hook script to this binary so it works even when commitgen
	// is not on PATH.
	if exe, err := os.Executable(); err == nil {
		m.Command = exe
	}

	if install {
		path, err := m.Install(ctx)
		if err != nil {
			fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
			return 1
		}

		fmt.Fprintf(stdout, "Installed %s\n", path)

		return 0
	}

	path, err := m.Uninstall(ctx)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	fmt.Fprintf(stdout, "Removed %s\n", path)

	return 0
}
