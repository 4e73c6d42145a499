// Package hook manages the prepare-commit-msg git hook. The hook's message
// file is the command-line counterpart of an editor's pending commit
// message field: whatever is written there seeds the user's commit editor.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/germanamz/commitgen/pkg/gitrepo"
)

// HookName is the git hook this package manages.
const HookName = "prepare-commit-msg"

// marker identifies hook scripts written by Install.
const marker = "# installed by commitgen; remove with: commitgen uninstall-hook"

var (
	// ErrForeignHook means a prepare-commit-msg hook exists that Install did
	// not write. It is never overwritten or removed.
	ErrForeignHook = errors.New("hook: existing prepare-commit-msg hook was not installed by commitgen")
	// ErrNotInstalled means there is no commitgen hook to remove.
	ErrNotInstalled = errors.New("hook: prepare-commit-msg hook is not installed")
)

// Commit sources git passes as the hook's second argument.
const (
	SourceMessage  = "message"
	SourceTemplate = "template"
	SourceMerge    = "merge"
	SourceSquash   = "squash"
	SourceCommit   = "commit"
)

var skipReasons = map[string]string{
	SourceMessage:  "a commit message was already provided",
	SourceTemplate: "a commit template is in use",
	SourceMerge:    "merge commits keep their own message",
	SourceSquash:   "squash commits keep their combined message",
	SourceCommit:   "amended commits keep their original message",
}

// SkipReason explains why the hook should leave the message file alone for
// the given commit source. It returns "" for a plain commit, the only case
// that generates.
func SkipReason(source string) string {
	if source == "" {
		return ""
	}

	if reason, ok := skipReasons[source]; ok {
		return reason
	}

	return fmt.Sprintf("unrecognized commit source %q", source)
}

// MessageFile is the file git hands to prepare-commit-msg. Setting the
// pending message prepends it, keeping git's comment block intact.
type MessageFile struct {
	Path string
}

// SetPendingMessage seeds the commit editor with message.
func (f MessageFile) SetPendingMessage(_ context.Context, message string) error {
	existing, err := os.ReadFile(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("hook: read message file: %w", err)
	}

	content := message + "\n"
	if rest := strings.TrimLeft(string(existing), "\n"); rest != "" {
		content += "\n" + rest
	}

	if err := os.WriteFile(f.Path, []byte(content), 0o644); err != nil { //nolint:gosec // commit message file is not sensitive
		return fmt.Errorf("hook: write message file: %w", err)
	}

	return nil
}

// Manager installs and removes the hook of a single repository.
type Manager struct {
	Repo *gitrepo.Repo
	// Command is the executable the hook script invokes. Empty uses
	// "commitgen" from PATH.
	Command string
}

// NewManager creates a Manager for the repository at path.
func NewManager(path string) *Manager {
	return &Manager{Repo: gitrepo.New(path)}
}

// HookPath returns the installed location of the hook script.
func (m *Manager) HookPath(ctx context.Context) (string, error) {
	gitDir, err := m.Repo.GitDir(ctx)
	if err != nil {
		return "", err
	}

	return filepath.Join(gitDir, "hooks", HookName), nil
}

// Install writes the hook script, replacing a previous commitgen hook but
// refusing to clobber anything else.
func (m *Manager) Install(ctx context.Context) (string, error) {
	path, err := m.HookPath(ctx)
	if err != nil {
		return "", err
	}

	existing, err := os.ReadFile(path)

	switch {
	case err == nil && !IsOwned(string(existing)):
		return "", fmt.Errorf("hook: %s: %w", path, ErrForeignHook)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("hook: read existing hook: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("hook: create hooks directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(m.script()), 0o755); err != nil { //nolint:gosec // hook scripts must be executable
		return "", fmt.Errorf("hook: write hook: %w", err)
	}

	return path, nil
}

// Uninstall removes the hook script if commitgen installed it.
func (m *Manager) Uninstall(ctx context.Context) (string, error) {
	path, err := m.HookPath(ctx)
	if err != nil {
		return "", err
	}

	existing, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("hook: %s: %w", path, ErrNotInstalled)
	}

	if err != nil {
		return "", fmt.Errorf("hook: read existing hook: %w", err)
	}

	if !IsOwned(string(existing)) {
		return "", fmt.Errorf("hook: %s: %w", path, ErrForeignHook)
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("hook: remove hook: %w", err)
	}

	return path, nil
}

// IsOwned reports whether hook content was written by Install.
func IsOwned(content string) bool {
	return strings.Contains(content, marker)
}

func (m *Manager) script() string {
	command := m.Command
	if command == "" {
		command = "commitgen"
	}

	return fmt.Sprintf("#!/bin/sh\n%s\nexec \"%s\" hook \"$@\"\n", marker, command)
}
