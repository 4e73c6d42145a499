package generator

import (
	"path/filepath"
	"strings"

	"github.com/germanamz/commitgen/pkg/gitrepo"
)

// refine normalizes a drafted message: strips stray quotes and trailing
// periods, enforces the length cap, and replaces degenerate output with a
// heuristic fallback derived from the change set.
func refine(message string, snap *gitrepo.Snapshot) string {
	message = strings.Trim(strings.TrimSpace(message), `"'`)
	message = strings.TrimRight(message, ".")

	if len([]rune(message)) > maxMessageLength {
		message = truncateMessage(message)
	}

	if len([]rune(message)) < 10 || !strings.Contains(message, ": ") {
		message = fallbackMessage(snap)
	}

	return message
}

// truncateMessage shortens an over-long message to maxMessageLength runes,
// keeping the "type(scope): " prefix intact and marking the cut with "...".
func truncateMessage(message string) string {
	colon := strings.Index(message, ": ")
	if colon <= 0 {
		return string([]rune(message)[:maxMessageLength-3]) + "..."
	}

	prefix := message[:colon+2]
	description := []rune(message[colon+2:])

	maxDesc := maxMessageLength - len([]rune(prefix)) - 3
	if maxDesc < 0 {
		return string([]rune(message)[:maxMessageLength-3]) + "..."
	}

	if len(description) > maxDesc {
		return prefix + string(description[:maxDesc]) + "..."
	}

	return message
}

// fallbackRules maps context keywords to canned messages, checked in order.
var fallbackRules = []struct {
	message string
	words   []string
}{
	{"test: add test cases", []string{"test", "spec", "unittest"}},
	{"docs: update documentation", []string{"readme", "doc", "documentation"}},
	{"chore: update configuration", []string{"config", "setting", "env"}},
	{"style: update styling", []string{"style", "css", "scss"}},
	{"fix: resolve issues", []string{"fix", "bug", "error"}},
	{"feat: add new functionality", []string{"feature", "new", "add"}},
}

// fallbackMessage derives a usable message from file names and a diff
// excerpt when the model produced something degenerate.
func fallbackMessage(snap *gitrepo.Snapshot) string {
	var stems []string
	for _, f := range snap.StagedFiles {
		if len(stems) == 3 {
			break
		}
		base := filepath.Base(f)
		stems = append(stems, strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))))
	}

	keywords := strings.ToLower(strings.Join(stems, " ") + " " + truncateRunes(snap.Diff, maxContextChars))

	for _, rule := range fallbackRules {
		for _, w := range rule.words {
			if strings.Contains(keywords, w) {
				return rule.message
			}
		}
	}

	if exts := stagedExtensions(snap.StagedFiles); len(exts) > 0 {
		if len(exts) > 2 {
			exts = exts[:2]
		}
		return "chore: update " + strings.Join(exts, ", ") + " files"
	}

	return "chore: update project files"
}

// stagedExtensions returns the distinct file extensions in first-seen order.
func stagedExtensions(files []string) []string {
	var exts []string
	seen := make(map[string]bool)

	for _, f := range files {
		ext := filepath.Ext(f)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}

	return exts
}
