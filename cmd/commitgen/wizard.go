package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/germanamz/commitgen/pkg/config"
	"github.com/germanamz/commitgen/pkg/llm/gemini"
	"github.com/germanamz/commitgen/pkg/llm/openai"
)

// wizardValues collects the init wizard's raw answers before conversion
// into a Config.
type wizardValues struct {
	Kind        string
	APIKey      string
	Model       string
	Temperature string
	MaxTokens   string
	AutoStage   bool
	External    bool
	Command     string
	Timeout     string
}

type providerDefault struct {
	APIKey string
	Model  string
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var providerDefaults = map[string]providerDefault{
	config.KindGemini: {APIKey: "${" + config.EnvGeminiKey + "}", Model: gemini.DefaultModel},
	config.KindOpenAI: {APIKey: "${" + config.EnvOpenAIKey + "}", Model: openai.DefaultModel},
}

// runInit drives the interactive wizard and writes the configuration file
// into the repository.
func runInit(repoPath string) error {
	path := filepath.Join(repoPath, config.DefaultName)

	if _, err := os.Stat(path); err == nil {
		var overwrite bool

		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return err
		}

		if !overwrite {
			fmt.Println("Keeping existing configuration")
			return nil
		}
	}

	values, err := runWizard()
	if err != nil {
		return err
	}

	cfg, err := values.toConfig()
	if err != nil {
		return err
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Initialized %s\n", path)

	return nil
}

func runWizard() (wizardValues, error) {
	v := wizardValues{AutoStage: true}

	kindForm := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Provider").
			Options(
				huh.NewOption("Gemini", config.KindGemini),
				huh.NewOption("OpenAI", config.KindOpenAI),
			).
			Value(&v.Kind),
	))
	if err := kindForm.Run(); err != nil {
		return v, err
	}

	defaults := providerDefaults[v.Kind]
	v.APIKey = defaults.APIKey
	v.Model = defaults.Model
	v.Temperature = strconv.FormatFloat(config.DefaultTemperature, 'g', -1, 64)
	v.MaxTokens = strconv.Itoa(config.DefaultMaxTokens)

	providerForm := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("API key (a ${VAR} reference keeps the secret out of the file)").
			Value(&v.APIKey),
		huh.NewInput().
			Title("Model").
			Value(&v.Model),
		huh.NewInput().
			Title("Temperature (0 to 1)").
			Value(&v.Temperature).
			Validate(validateTemperature),
		huh.NewInput().
			Title("Max tokens").
			Value(&v.MaxTokens).
			Validate(validatePositiveInt),
		huh.NewConfirm().
			Title("Stage modified files when nothing is staged?").
			Value(&v.AutoStage),
	))
	if err := providerForm.Run(); err != nil {
		return v, err
	}

	externalForm := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Configure an external generator command?").
			Value(&v.External),
	))
	if err := externalForm.Run(); err != nil {
		return v, err
	}

	if v.External {
		v.Timeout = "120s"

		commandForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Generator command (space separated)").
				Value(&v.Command),
			huh.NewInput().
				Title("Timeout (e.g. 120s, empty for none)").
				Value(&v.Timeout).
				Validate(validateDuration),
		))
		if err := commandForm.Run(); err != nil {
			return v, err
		}
	}

	return v, nil
}

// toConfig converts wizard answers into a validated Config.
func (v wizardValues) toConfig() (config.Config, error) {
	cfg := config.Config{
		Provider: config.ProviderConfig{
			Kind:   v.Kind,
			APIKey: v.APIKey,
			Model:  v.Model,
		},
	}

	if v.Temperature != "" {
		t, err := strconv.ParseFloat(v.Temperature, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid temperature %q", v.Temperature)
		}

		cfg.Provider.Temperature = t
	}

	if v.MaxTokens != "" {
		n, err := strconv.Atoi(v.MaxTokens)
		if err != nil {
			return cfg, fmt.Errorf("invalid max tokens %q", v.MaxTokens)
		}

		cfg.Provider.MaxTokens = n
	}

	if !v.AutoStage {
		disabled := false
		cfg.AutoStage = &disabled
	}

	if v.External && strings.TrimSpace(v.Command) != "" {
		cfg.Generator.Command = strings.Fields(v.Command)
		cfg.Generator.Timeout = v.Timeout
	}

	return cfg, cfg.Validate()
}

func validateTemperature(s string) error {
	if s == "" {
		return nil
	}

	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < 0 || t > 1 {
		return fmt.Errorf("must be a number between 0 and 1")
	}

	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}

	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}

	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a valid duration (e.g. 120s, 2m)")
	}

	return nil
}
