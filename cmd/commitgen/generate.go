package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/germanamz/commitgen/pkg/config"
	"github.com/germanamz/commitgen/pkg/deliver"
	"github.com/germanamz/commitgen/pkg/generator"
	"github.com/germanamz/commitgen/pkg/gitrepo"
	"github.com/germanamz/commitgen/pkg/launcher"
	"github.com/germanamz/commitgen/pkg/llm"
	"github.com/germanamz/commitgen/pkg/llm/gemini"
	"github.com/germanamz/commitgen/pkg/llm/openai"
)

// generateOptions holds the flags shared by the default command, run, and
// hook.
type generateOptions struct {
	repoPath    string
	apiKey      string
	model       string
	temperature float64 // negative means unset
	maxTokens   int     // 0 means unset
	jsonOut     bool
	copyOut     bool
	configPath  string
	envFile     string
	verbose     bool
}

// loadConfig resolves and loads the configuration for one invocation. A
// missing config file yields the zero Config.
func loadConfig(opts generateOptions) (config.Config, error) {
	path := config.Locate(opts.configPath, opts.repoPath)
	if path == "" {
		return config.Config{}, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	return cfg, cfg.Validate()
}

// resolveModel picks the model: flag, then config, then the provider default.
func resolveModel(flagValue string, cfg config.Config) string {
	if flagValue != "" {
		return flagValue
	}

	if cfg.Provider.Model != "" {
		return cfg.Provider.Model
	}

	if cfg.ProviderKind() == config.KindOpenAI {
		return openai.DefaultModel
	}

	return gemini.DefaultModel
}

func resolveTemperature(flagValue float64, cfg config.Config) float64 {
	if flagValue >= 0 {
		return flagValue
	}

	if cfg.Provider.Temperature > 0 {
		return cfg.Provider.Temperature
	}

	return config.DefaultTemperature
}

func resolveMaxTokens(flagValue int, cfg config.Config) int {
	if flagValue > 0 {
		return flagValue
	}

	if cfg.Provider.MaxTokens > 0 {
		return cfg.Provider.MaxTokens
	}

	return config.DefaultMaxTokens
}

func missingKeyError(kind string) error {
	if kind == config.KindOpenAI {
		return errors.New("missing API key: set OPENAI_API_KEY or pass --api-key")
	}

	return errors.New("missing API key: set GOOGLE_API_KEY or pass --api-key")
}

// buildCompleter assembles the provider adapter for one invocation.
func buildCompleter(cfg config.Config, apiKey string, opts generateOptions) llm.Completer {
	model := resolveModel(opts.model, cfg)
	temperature := resolveTemperature(opts.temperature, cfg)
	maxTokens := resolveMaxTokens(opts.maxTokens, cfg)

	if cfg.ProviderKind() == config.KindOpenAI {
		a := openai.New(cfg.Provider.BaseURL, apiKey, model)
		a.Temperature = temperature
		a.MaxTokens = maxTokens

		return a
	}

	a := gemini.New(cfg.Provider.BaseURL, apiKey, model)
	a.Temperature = temperature
	a.MaxTokens = maxTokens

	return a
}

// buildGenerator wires the native pipeline. autoStage additionally gates the
// config's auto-stage setting; hooks force it off.
func buildGenerator(cfg config.Config, opts generateOptions, autoStage bool) (*generator.Generator, llm.Completer, error) {
	apiKey := config.ResolveAPIKey(opts.apiKey, cfg)
	if apiKey == "" {
		return nil, nil, missingKeyError(cfg.ProviderKind())
	}

	repo := gitrepo.New(opts.repoPath)
	repo.AutoStage = autoStage && cfg.AutoStageEnabled()

	completer := buildCompleter(cfg, apiKey, opts)

	return generator.New(completer, repo), completer, nil
}

// runGenerate is the default command: generate a commit message for the
// repository and print it.
func runGenerate(ctx context.Context, opts generateOptions, stdout, stderr io.Writer) int {
	if err := loadDotEnv(opts.envFile); err != nil {
		return printFailure(stdout, stderr, opts, err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return printFailure(stdout, stderr, opts, err)
	}

	gen, completer, err := buildGenerator(cfg, opts, true)
	if err != nil {
		return printFailure(stdout, stderr, opts, err)
	}

	start := time.Now()

	res, err := runWithSpinner(ctx, "Generating commit message...", opts.jsonOut, stderr, gen.Run)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, dimStyle.Render("Cancelled"))
			return exitCancelled
		}

		return printFailure(stdout, stderr, opts, err)
	}

	if opts.jsonOut {
		emitPayload(stdout, launcher.SuccessPayload(res.Message))
	} else {
		fmt.Fprintln(stdout, successStyle.Render("Generated commit message:")+" "+res.Message)
	}

	if opts.copyOut {
		d := deliver.New(nil, newStderrNotifier(stderr))
		outcome := &launcher.Result{State: launcher.StateSucceeded, Payload: launcher.SuccessPayload(res.Message)}

		if err := d.Deliver(ctx, outcome); err != nil {
			return 1
		}
	}

	if opts.verbose {
		printRunDetails(stderr, res, completer, time.Since(start))
	}

	return 0
}

// printFailure reports a failed generation in the requested output mode and
// returns the process exit code. In JSON mode the result contract goes to
// stdout and the error text to stderr, so controllers see both channels.
func printFailure(stdout, stderr io.Writer, opts generateOptions, err error) int {
	if opts.jsonOut {
		emitPayload(stdout, launcher.FailurePayload(err.Error()))
		fmt.Fprintln(stderr, err.Error())

		return 1
	}

	if errors.Is(err, generator.ErrNoChanges) {
		fmt.Fprintln(stderr, warningStyle.Render("No changes detected to generate commit message"))

		return 1
	}

	fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))

	return 1
}

// emitPayload writes the machine-readable result contract as one line.
func emitPayload(w io.Writer, payload *launcher.Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintln(w, `{"commit_message": null, "success": false, "error": "internal encoding error"}`)

		return
	}

	fmt.Fprintln(w, string(data))
}

// printRunDetails shows the analysis trail and token usage after a verbose
// run.
func printRunDetails(w io.Writer, res *generator.Result, completer llm.Completer, elapsed time.Duration) {
	if res.AutoStaged {
		fmt.Fprintln(w, dimStyle.Render("staged modified files automatically"))
	}

	if len(res.Files) > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("files: %d staged", len(res.Files))))
	}

	label := res.ChangeType
	if res.Scope != "" {
		label = fmt.Sprintf("%s(%s)", res.ChangeType, res.Scope)
	}

	fmt.Fprintln(w, dimStyle.Render("change type: "+label))

	if res.Analysis != "" {
		fmt.Fprintln(w, dimStyle.Render("analysis: "+truncate(res.Analysis, 200)))
	}

	if reporter, ok := completer.(llm.UsageReporter); ok {
		total := reporter.UsageTracker().Total()
		calls := reporter.UsageTracker().Calls()
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf(
			"tokens: ↑%s ↓%s over %d calls · %s",
			fmtTokens(total.Input), fmtTokens(total.Output), calls, fmtDuration(elapsed),
		)))
	}
}
