package generator

import (
	"fmt"
	"strings"

	"github.com/germanamz/commitgen/pkg/llm"
)

const analyzePromptTemplate = `Analyze the following git diff and provide a structured analysis:

Git Diff:
%s

Staged Files: %s

Analyze the changes and provide:
1. What type of changes were made?
2. Which files/modules are most affected?
3. What is the main purpose of these changes?
4. Are there any breaking changes?
5. What would be an appropriate scope (component/module name)?

Be concise and focus on the most important aspects.`

const typePromptTemplate = `Based on this analysis of git changes, determine the conventional commit type and scope:

Analysis:
%s

Files changed: %s

Return ONLY a JSON object with this format:
{
    "type": "one of: feat, fix, docs, style, refactor, test, chore, perf, ci, build, revert",
    "scope": "optional scope like component/module name or empty string"
}

Guidelines for type selection:
- feat: New features or functionality
- fix: Bug fixes
- refactor: Code restructuring without changing behavior
- perf: Performance improvements
- style: Formatting, whitespace, missing semicolons
- docs: Documentation changes
- test: Adding or modifying tests
- chore: Maintenance tasks, dependency updates
- ci: CI/CD pipeline changes
- build: Build system or external dependencies`

const draftPromptTemplate = `Generate a conventional commit message description for these changes:

Type: %s
Scope: %s
Analysis: %s
Files changed: %s

Create a clear, specific description that explains what was changed and why.

Rules:
1. Use imperative mood ("add" not "added" or "adds")
2. Don't capitalize the first letter of description
3. Don't end with a period
4. Be specific about the actual functionality changed
5. Keep it under 95 characters total for the full message
6. Focus on the "what" and "why", not the "how"

Examples:
- adjust image resize dimensions for better accuracy
- fix null pointer exception in user validation
- add OAuth2 authentication support
- refactor database connection logic
- update API documentation for v2 endpoints
- optimize query performance in user search

Return ONLY the description part (what comes after the colon and space).`

func buildAnalyzePrompt(diff string, files []string) llm.Request {
	return llm.Request{
		User: fmt.Sprintf(analyzePromptTemplate, truncateRunes(diff, maxDiffChars), strings.Join(files, ", ")),
	}
}

func buildTypePrompt(analysis string, files []string) llm.Request {
	return llm.Request{
		User: fmt.Sprintf(typePromptTemplate, analysis, strings.Join(files, ", ")),
	}
}

func buildDraftPrompt(changeType, scope, analysis string, files []string) llm.Request {
	return llm.Request{
		User: fmt.Sprintf(draftPromptTemplate, changeType, scope, analysis, strings.Join(files, ", ")),
	}
}
