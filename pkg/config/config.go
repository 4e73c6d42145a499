// Package config loads and validates the commitgen configuration file.
// Settings are read once per invocation; there is no live reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultName is the config file name the init wizard writes.
const DefaultName = ".commitgen.yaml"

// Provider kinds.
const (
	KindGemini = "gemini"
	KindOpenAI = "openai"
)

// Environment variables checked for a credential when none is configured.
const (
	EnvGeminiKey = "GOOGLE_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY" //nolint:gosec // environment variable name, not a credential
)

// Defaults applied when fields are unset.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 100
)

// Config is the top-level commitgen configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Generator GeneratorConfig `yaml:"generator"`
	// AutoStage controls staging of modified files when nothing is staged.
	// Unset means enabled.
	AutoStage *bool `yaml:"auto_stage,omitempty"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Kind        string  `yaml:"kind,omitempty"`    // "gemini" (default) or "openai"
	APIKey      string  `yaml:"api_key,omitempty"` //nolint:gosec // configuration field, usually a ${VAR} reference
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"` // 0 uses the default of 0.3
	MaxTokens   int     `yaml:"max_tokens,omitempty"`  // 0 uses the default of 100
}

// GeneratorConfig describes the external generator process and the probes
// run against its interpreter.
type GeneratorConfig struct {
	Interpreter string   `yaml:"interpreter,omitempty"` // empty resolves python3/python from PATH
	Command     []string `yaml:"command,omitempty"`     // argv prefix for commitgen run
	Timeout     string   `yaml:"timeout,omitempty"`     // duration string, e.g. "120s"; empty means none
	Modules     []string `yaml:"modules,omitempty"`     // import names doctor probes
}

// Load reads a YAML file and returns a Config. Environment variables
// referenced as ${VAR} or $VAR are expanded before parsing, so credentials
// can live in the environment rather than in the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg as YAML. The file is created private since it may carry a
// credential.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

// Locate returns the config file to load: the explicit path when given,
// else the first of <repo>/.commitgen.yaml and
// ~/.config/commitgen/config.yaml that exists. A missing config is not an
// error; Locate returns "".
func Locate(explicit, repoPath string) string {
	if explicit != "" {
		return explicit
	}

	candidates := []string{filepath.Join(repoPath, DefaultName)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "commitgen", "config.yaml"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	switch c.Provider.Kind {
	case "", KindGemini, KindOpenAI:
	default:
		return fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 1 {
		return fmt.Errorf("config: temperature %v out of range [0, 1]", c.Provider.Temperature)
	}

	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("config: max_tokens must not be negative")
	}

	if _, err := c.Generator.TimeoutDuration(); err != nil {
		return err
	}

	for _, arg := range c.Generator.Command {
		if arg == "" {
			return fmt.Errorf("config: generator command contains an empty argument")
		}
	}

	return nil
}

// ProviderKind returns the configured provider kind, defaulting to gemini.
func (c Config) ProviderKind() string {
	if c.Provider.Kind == "" {
		return KindGemini
	}

	return c.Provider.Kind
}

// AutoStageEnabled reports whether unstaged modifications should be staged
// automatically. Defaults to true.
func (c Config) AutoStageEnabled() bool {
	return c.AutoStage == nil || *c.AutoStage
}

// TimeoutDuration parses the generator timeout. Empty means no timeout.
func (g GeneratorConfig) TimeoutDuration() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: generator timeout: %w", err)
	}

	return d, nil
}

// ResolveAPIKey returns the first credential available: the flag value, the
// configured key, then the provider's environment variable.
func ResolveAPIKey(flagValue string, cfg Config) string {
	if flagValue != "" {
		return flagValue
	}

	if cfg.Provider.APIKey != "" {
		return cfg.Provider.APIKey
	}

	if cfg.ProviderKind() == KindOpenAI {
		return os.Getenv(EnvOpenAIKey)
	}

	return os.Getenv(EnvGeminiKey)
}
