// Package generator produces conventional commit messages for a
// repository's pending changes. It runs a four step pipeline against an
// llm.Completer: analyze the diff, pick a commit type, draft a
// description, refine the result. Every model call degrades gracefully so
// a flaky API still yields a usable message.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/germanamz/commitgen/pkg/gitrepo"
	"github.com/germanamz/commitgen/pkg/llm"
)

// ErrNoChanges is returned when the repository has nothing to describe.
// The message text is part of the result contract consumed by editor
// integrations and must not change.
var ErrNoChanges = errors.New("No changes detected in repository") //nolint:staticcheck // contract text

const (
	// maxDiffChars bounds how much of the diff is sent to the model.
	maxDiffChars = 5000
	// maxContextChars bounds the diff excerpt used for fallback heuristics.
	maxContextChars = 500
	// maxMessageLength is the hard cap on the final commit message.
	maxMessageLength = 95
)

// Snapshotter provides the change set to describe. *gitrepo.Repo satisfies it.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*gitrepo.Snapshot, error)
}

// Result carries the generated message plus what the pipeline learned on
// the way there.
type Result struct {
	Message    string
	ChangeType string
	Scope      string
	Analysis   string
	Files      []string
	AutoStaged bool
}

// Generator runs the pipeline for one repository.
type Generator struct {
	Completer llm.Completer
	Repo      Snapshotter
}

// New creates a Generator over the given completer and repository.
func New(completer llm.Completer, repo Snapshotter) *Generator {
	return &Generator{Completer: completer, Repo: repo}
}

// Run produces a commit message for the repository's pending changes.
// It returns ErrNoChanges when there is nothing to describe. Cancelling
// the context aborts the pipeline between steps.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	snap, err := g.Repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if snap.Empty() {
		return nil, ErrNoChanges
	}

	res := &Result{
		Files:      snap.StagedFiles,
		AutoStaged: snap.AutoStaged,
	}

	res.Analysis = g.analyze(ctx, snap)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.ChangeType, res.Scope = g.determineType(ctx, res.Analysis, snap.StagedFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := g.draft(ctx, res.ChangeType, res.Scope, res.Analysis, snap.StagedFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Message = refine(draft, snap)

	return res, nil
}

// analyze asks the model to summarize the diff. A model failure degrades
// to an error note so the remaining steps still run.
func (g *Generator) analyze(ctx context.Context, snap *gitrepo.Snapshot) string {
	reply, err := g.Completer.Complete(ctx, buildAnalyzePrompt(snap.Diff, snap.StagedFiles))
	if err != nil {
		return "Error analyzing changes: " + err.Error()
	}

	return reply
}

type typeReply struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

// determineType picks the conventional commit type and scope. It expects a
// strict JSON reply; anything else falls back to keyword classification,
// and a model failure falls back to chore.
func (g *Generator) determineType(ctx context.Context, analysis string, files []string) (string, string) {
	reply, err := g.Completer.Complete(ctx, buildTypePrompt(analysis, files))
	if err != nil {
		return "chore", ""
	}

	var parsed typeReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &parsed); err == nil {
		if parsed.Type == "" {
			parsed.Type = "chore"
		}
		return parsed.Type, parsed.Scope
	}

	return classifyByKeywords(reply), ""
}

// keywordRules maps indicative words in a free-form model reply to commit
// types, checked in order.
var keywordRules = []struct {
	commitType string
	words      []string
}{
	{"feat", []string{"new", "add", "implement", "feature"}},
	{"fix", []string{"fix", "bug", "error", "issue"}},
	{"refactor", []string{"refactor", "restructure", "reorganize"}},
	{"perf", []string{"performance", "optimize", "speed"}},
	{"style", []string{"style", "format", "whitespace"}},
	{"docs", []string{"doc", "readme", "comment"}},
	{"test", []string{"test", "spec"}},
}

func classifyByKeywords(reply string) string {
	content := strings.ToLower(reply)

	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(content, w) {
				return rule.commitType
			}
		}
	}

	return "chore"
}

// draft asks the model for the description part and assembles the full
// message. A model failure degrades to a generic description.
func (g *Generator) draft(ctx context.Context, changeType, scope, analysis string, files []string) string {
	prefix := changeType
	if scope != "" {
		prefix += "(" + scope + ")"
	}

	reply, err := g.Completer.Complete(ctx, buildDraftPrompt(changeType, scope, analysis, files))
	if err != nil {
		return prefix + ": update files"
	}

	description := strings.Trim(strings.TrimSpace(reply), `"'`)

	return prefix + ": " + description
}

// truncateRunes limits s to max runes.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
