package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/germanamz/commitgen/pkg/config"
	"github.com/germanamz/commitgen/pkg/deliver"
	"github.com/germanamz/commitgen/pkg/launcher"
)

// runController drives the configured external generator through the
// launcher and delivers its result.
func runController(ctx context.Context, opts generateOptions, stdout, stderr io.Writer) int {
	if err := loadDotEnv(opts.envFile); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	if len(cfg.Generator.Command) == 0 {
		fmt.Fprintln(stderr, errorStyle.Render("Error: no generator command configured; set generator.command in "+config.DefaultName))
		return 1
	}

	timeout, err := cfg.Generator.TimeoutDuration()
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	l := launcher.New(cfg.Generator.Command...)
	l.Timeout = timeout

	if opts.verbose {
		l.OnState = func(s launcher.State) {
			fmt.Fprintln(stderr, dimStyle.Render("state: "+s.String()))
		}
	}

	inv := launcher.Invocation{
		RepoPath:      opts.repoPath,
		APIKey:        config.ResolveAPIKey(opts.apiKey, cfg),
		Model:         resolveModel(opts.model, cfg),
		Temperature:   resolveTemperature(opts.temperature, cfg),
		MaxTokens:     resolveMaxTokens(opts.maxTokens, cfg),
		MachineOutput: true,
	}

	res, err := runWithSpinner(ctx, "Generating commit message...", opts.jsonOut, stderr,
		func(ctx context.Context) (*launcher.Result, error) {
			return l.Launch(ctx, inv)
		})
	if res == nil {
		// Launch refused the invocation before starting the process.
		if errors.Is(err, launcher.ErrMissingCredential) {
			err = missingKeyError(cfg.ProviderKind())
		}

		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))

		return 1
	}

	notifier := newStderrNotifier(stderr)

	switch res.State {
	case launcher.StateSucceeded:
		if opts.jsonOut {
			emitPayload(stdout, res.Payload)
		} else {
			fmt.Fprintln(stdout, res.Message())
		}

		if opts.copyOut {
			d := deliver.New(nil, notifier)
			if err := d.Deliver(ctx, res); err != nil {
				return 1
			}
		}

		return 0

	case launcher.StateCancelled:
		notifier.Notify(deliver.SeverityInfo, "Commit message generation cancelled")

		return exitCancelled

	default:
		text := res.FailureText()
		if opts.jsonOut {
			emitPayload(stdout, launcher.FailurePayload(text))
			fmt.Fprintln(stderr, text)

			return 1
		}

		if strings.Contains(text, deliver.NoChangesMarker) {
			notifier.Notify(deliver.SeverityWarning, text)
		} else {
			notifier.Notify(deliver.SeverityError, "Commit message generation failed: "+text)
		}

		return 1
	}
}
