// Package gitrepo reads the change state of a git repository: the staged
// file list and the diff the commit message pipeline will describe.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
)

// ErrNotRepository is returned when the target path is not inside a git
// work tree.
var ErrNotRepository = errors.New("not a git repository")

// CommandError describes a git command that failed. Stderr carries the
// command's error output verbatim.
type CommandError struct {
	Args   []string // git subcommand arguments, without the leading "git"
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes a git command in a repository and returns its stdout.
// It exists so tests can substitute a scripted implementation.
type Runner interface {
	Run(ctx context.Context, repoPath string, args ...string) (string, error)
}

// ExecRunner is the default Runner. It shells out to the git binary with
// the repository selected via -C.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, repoPath string, args ...string) (string, error) {
	full := append([]string{"-C", repoPath}, args...)
	cmd := osexec.CommandContext(ctx, "git", full...) //nolint:gosec // args are fixed git subcommands

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}

	return stdout.String(), nil
}

// Repo reads change state from a single git repository.
type Repo struct {
	Path      string
	AutoStage bool   // stage pending modifications when the index is empty
	Runner    Runner // command runner; falls back to ExecRunner when nil
}

// New creates a Repo for the given path with auto-staging enabled.
func New(path string) *Repo {
	return &Repo{Path: path, AutoStage: true, Runner: ExecRunner{}}
}

// Snapshot captures the change set the pipeline will describe.
type Snapshot struct {
	StagedFiles []string
	Diff        string
	AutoStaged  bool // true when Snapshot staged the changes itself
}

// Empty reports whether the snapshot holds no describable changes.
func (s *Snapshot) Empty() bool {
	return len(s.StagedFiles) == 0 && strings.TrimSpace(s.Diff) == ""
}

// Check verifies that Path is inside a git work tree.
func (r *Repo) Check(ctx context.Context) error {
	if _, err := r.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("gitrepo: %s: %w", r.Path, ErrNotRepository)
	}
	return nil
}

// GitDir returns the repository's git directory as an absolute path.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("gitrepo: resolve git dir: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Root returns the repository's top-level working directory.
func (r *Repo) Root(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("gitrepo: resolve root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Snapshot reads the staged file list and the matching diff. When the index
// is empty and AutoStage is set, pending modifications are staged first so
// the diff reflects what the next commit would contain.
func (r *Repo) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := r.Check(ctx); err != nil {
		return nil, err
	}

	snap := &Snapshot{}

	staged, err := r.stagedFiles(ctx)
	if err != nil {
		return nil, err
	}

	if len(staged) == 0 && r.AutoStage {
		modified, err := r.modifiedFiles(ctx)
		if err != nil {
			return nil, err
		}

		if len(modified) > 0 {
			if _, err := r.run(ctx, "add", "."); err != nil {
				return nil, fmt.Errorf("gitrepo: stage changes: %w", err)
			}
			snap.AutoStaged = true

			staged, err = r.stagedFiles(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	snap.StagedFiles = staged

	if len(staged) > 0 {
		snap.Diff, err = r.run(ctx, "diff", "--staged")
	} else {
		snap.Diff, err = r.run(ctx, "diff")
	}
	if err != nil {
		return nil, fmt.Errorf("gitrepo: read diff: %w", err)
	}

	return snap, nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	runner := r.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return runner.Run(ctx, r.Path, args...)
}

// stagedFiles lists paths staged in the index relative to HEAD.
func (r *Repo) stagedFiles(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", "--cached")
	if err != nil {
		return nil, fmt.Errorf("gitrepo: list staged files: %w", err)
	}
	return splitLines(out), nil
}

// modifiedFiles lists tracked paths with unstaged modifications.
func (r *Repo) modifiedFiles(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only")
	if err != nil {
		return nil, fmt.Errorf("gitrepo: list modified files: %w", err)
	}
	return splitLines(out), nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
