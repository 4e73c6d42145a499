package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/commitgen/pkg/config"
	"github.com/germanamz/commitgen/pkg/generator"
	"github.com/germanamz/commitgen/pkg/launcher"
	"github.com/germanamz/commitgen/pkg/llm/gemini"
	"github.com/germanamz/commitgen/pkg/llm/openai"
)

// isolateEnv points config discovery and API key resolution at empty
// locations so the ambient environment cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
}

func TestResolveModel(t *testing.T) {
	cfg := config.Config{Provider: config.ProviderConfig{Model: "gemini-1.5-pro"}}

	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-2.0-flash", cfg), "flag wins")
	assert.Equal(t, "gemini-1.5-pro", resolveModel("", cfg), "config wins over default")
	assert.Equal(t, gemini.DefaultModel, resolveModel("", config.Config{}))

	openaiCfg := config.Config{Provider: config.ProviderConfig{Kind: config.KindOpenAI}}
	assert.Equal(t, openai.DefaultModel, resolveModel("", openaiCfg))
}

func TestResolveTemperature(t *testing.T) {
	cfg := config.Config{Provider: config.ProviderConfig{Temperature: 0.7}}

	assert.InDelta(t, 0.5, resolveTemperature(0.5, cfg), 1e-9, "flag wins")
	assert.InDelta(t, 0.0, resolveTemperature(0, cfg), 1e-9, "explicit zero counts as set")
	assert.InDelta(t, 0.7, resolveTemperature(-1, cfg), 1e-9, "config wins over default")
	assert.InDelta(t, config.DefaultTemperature, resolveTemperature(-1, config.Config{}), 1e-9)
}

func TestResolveMaxTokens(t *testing.T) {
	cfg := config.Config{Provider: config.ProviderConfig{MaxTokens: 200}}

	assert.Equal(t, 50, resolveMaxTokens(50, cfg), "flag wins")
	assert.Equal(t, 200, resolveMaxTokens(0, cfg), "config wins over default")
	assert.Equal(t, config.DefaultMaxTokens, resolveMaxTokens(0, config.Config{}))
}

func TestMissingKeyError(t *testing.T) {
	assert.EqualError(t, missingKeyError(config.KindGemini),
		"missing API key: set GOOGLE_API_KEY or pass --api-key")
	assert.EqualError(t, missingKeyError(config.KindOpenAI),
		"missing API key: set OPENAI_API_KEY or pass --api-key")
}

func TestLoadConfig_MissingFileYieldsZero(t *testing.T) {
	isolateEnv(t)

	cfg, err := loadConfig(generateOptions{repoPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, config.Config{}, cfg)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  kind: openai\n  model: gpt-4o\n"), 0o600))

	cfg, err := loadConfig(generateOptions{configPath: path, repoPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, config.KindOpenAI, cfg.Provider.Kind)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
}

func TestLoadConfig_InvalidConfigFails(t *testing.T) {
	isolateEnv(t)

	repo := t.TempDir()
	path := filepath.Join(repo, config.DefaultName)
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  kind: cohere\n"), 0o600))

	_, err := loadConfig(generateOptions{repoPath: repo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider kind")
}

func TestBuildGenerator_MissingKey(t *testing.T) {
	isolateEnv(t)

	_, _, err := buildGenerator(config.Config{}, generateOptions{repoPath: t.TempDir()}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestBuildCompleter_PicksProvider(t *testing.T) {
	geminiCfg := config.Config{}
	c := buildCompleter(geminiCfg, "key", generateOptions{temperature: -1})
	_, ok := c.(*gemini.Adapter)
	assert.True(t, ok, "default kind builds a Gemini adapter")

	openaiCfg := config.Config{Provider: config.ProviderConfig{Kind: config.KindOpenAI}}
	c = buildCompleter(openaiCfg, "key", generateOptions{temperature: -1})
	oa, ok := c.(*openai.Adapter)
	require.True(t, ok, "openai kind builds an OpenAI adapter")
	assert.InDelta(t, config.DefaultTemperature, oa.Temperature, 1e-9)
	assert.Equal(t, config.DefaultMaxTokens, oa.MaxTokens)
}

func TestEmitPayload(t *testing.T) {
	var buf bytes.Buffer
	emitPayload(&buf, launcher.SuccessPayload("Add login endpoint"))
	assert.JSONEq(t, `{"success": true, "commit_message": "Add login endpoint"}`, buf.String())

	buf.Reset()
	emitPayload(&buf, launcher.FailurePayload("boom"))
	assert.JSONEq(t, `{"success": false, "commit_message": null, "error": "boom"}`, buf.String())
}

func TestPrintFailure_Human(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := printFailure(&stdout, &stderr, generateOptions{}, assert.AnError)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String(), "human failures leave stdout clean")
	assert.Contains(t, stderr.String(), "Error: "+assert.AnError.Error())
}

func TestPrintFailure_NoChangesBecomesWarning(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := printFailure(&stdout, &stderr, generateOptions{}, generator.ErrNoChanges)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "No changes detected to generate commit message")
	assert.NotContains(t, stderr.String(), "Error:")
}

func TestPrintFailure_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := printFailure(&stdout, &stderr, generateOptions{jsonOut: true}, assert.AnError)
	assert.Equal(t, 1, code)
	assert.JSONEq(t,
		`{"success": false, "commit_message": null, "error": "`+assert.AnError.Error()+`"}`,
		stdout.String())
	assert.Contains(t, stderr.String(), assert.AnError.Error())
}

func TestRunGenerate_MissingKeyJSON(t *testing.T) {
	isolateEnv(t)

	var stdout, stderr bytes.Buffer
	opts := generateOptions{
		repoPath: t.TempDir(),
		jsonOut:  true,
		envFile:  filepath.Join(t.TempDir(), ".env"),
	}

	code := runGenerate(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.JSONEq(t,
		`{"success": false, "commit_message": null, "error": "missing API key: set GOOGLE_API_KEY or pass --api-key"}`,
		stdout.String())
	assert.Contains(t, stderr.String(), "missing API key")
}
