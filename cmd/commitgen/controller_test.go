package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeGenerator drops an executable stand-in for the external generator
// into a temp dir and returns its path.
func writeGenerator(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "generator.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)) //nolint:gosec // test fixture must be executable

	return path
}

// writeGeneratorConfig writes a config file wiring the given script as the
// external generator and returns the config path.
func writeGeneratorConfig(t *testing.T, script, timeout string) string {
	t.Helper()

	content := fmt.Sprintf("generator:\n  command: [%q]\n", script)
	if timeout != "" {
		content += fmt.Sprintf("  timeout: %s\n", timeout)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func controllerOpts(t *testing.T, configPath string) generateOptions {
	t.Helper()

	return generateOptions{
		repoPath:    t.TempDir(),
		apiKey:      "test-key",
		temperature: -1,
		configPath:  configPath,
		envFile:     filepath.Join(t.TempDir(), ".env"),
	}
}

func TestRunController_Success(t *testing.T) {
	script := writeGenerator(t, `echo "Analyzing changes..."
echo '{"commit_message": "Add login endpoint", "success": true}'
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), controllerOpts(t, cfgPath), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Add login endpoint\n", stdout.String())
}

func TestRunController_JSONSuccess(t *testing.T) {
	script := writeGenerator(t, `echo '{"commit_message": "Add login endpoint", "success": true}'
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	opts := controllerOpts(t, cfgPath)
	opts.jsonOut = true

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"success": true, "commit_message": "Add login endpoint"}`, stdout.String())
}

func TestRunController_ExitFailure(t *testing.T) {
	script := writeGenerator(t, `echo "ModuleNotFoundError: No module named 'git'" >&2
exit 1
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), controllerOpts(t, cfgPath), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Commit message generation failed")
	assert.Contains(t, stderr.String(), "ModuleNotFoundError")
}

func TestRunController_NoChangesBecomesWarning(t *testing.T) {
	script := writeGenerator(t, `echo '{"commit_message": null, "success": false, "error": "No changes detected in repository"}'
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), controllerOpts(t, cfgPath), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "No changes detected")
	assert.NotContains(t, stderr.String(), "Commit message generation failed")
}

func TestRunController_JSONFailure(t *testing.T) {
	script := writeGenerator(t, `echo "boom" >&2
exit 2
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	opts := controllerOpts(t, cfgPath)
	opts.jsonOut = true

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.JSONEq(t,
		`{"success": false, "commit_message": null, "error": "launcher: generator exited with code 2: boom"}`,
		stdout.String())
	assert.Contains(t, stderr.String(), "boom")
}

func TestRunController_NoCommandConfigured(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	opts := generateOptions{
		repoPath:    t.TempDir(),
		temperature: -1,
		envFile:     filepath.Join(t.TempDir(), ".env"),
	}

	code := runController(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no generator command configured")
}

func TestRunController_MissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	script := writeGenerator(t, "exit 0\n")
	cfgPath := writeGeneratorConfig(t, script, "")

	opts := controllerOpts(t, cfgPath)
	opts.apiKey = ""

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "missing API key: set GOOGLE_API_KEY or pass --api-key")
}

func TestRunController_Timeout(t *testing.T) {
	script := writeGenerator(t, "sleep 5\n")
	cfgPath := writeGeneratorConfig(t, script, "100ms")

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), controllerOpts(t, cfgPath), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "timed out")
}

func TestRunController_Cancelled(t *testing.T) {
	script := writeGenerator(t, "sleep 5\n")
	cfgPath := writeGeneratorConfig(t, script, "")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer

	code := runController(ctx, controllerOpts(t, cfgPath), &stdout, &stderr)
	assert.Equal(t, exitCancelled, code)
	assert.Contains(t, stderr.String(), "cancelled")
	assert.Empty(t, stdout.String())
}

func TestRunController_VerboseStates(t *testing.T) {
	script := writeGenerator(t, `echo '{"commit_message": "Add login endpoint", "success": true}'
`)
	cfgPath := writeGeneratorConfig(t, script, "")

	opts := controllerOpts(t, cfgPath)
	opts.verbose = true

	var stdout, stderr bytes.Buffer

	code := runController(context.Background(), opts, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "state: launching")
	assert.Contains(t, stderr.String(), "state: running")
	assert.Contains(t, stderr.String(), "state: succeeded")
}
