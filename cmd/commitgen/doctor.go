package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/germanamz/commitgen/pkg/preflight"
)

// runDoctor probes the generator environment and optionally installs the
// missing dependencies.
func runDoctor(ctx context.Context, configPath, repoPath string, install bool, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(generateOptions{configPath: configPath, repoPath: repoPath})
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	checker := preflight.New(cfg.Generator.Interpreter, cfg.Generator.Modules...)

	reports := checker.Check(ctx)
	failed := printReports(stdout, reports)

	if !failed {
		return 0
	}

	if !install {
		return 1
	}

	fmt.Fprintln(stdout, "Installing dependencies...")

	out, err := checker.InstallDependencies(ctx)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))

		if trimmed := strings.TrimSpace(out); trimmed != "" {
			fmt.Fprintln(stderr, dimStyle.Render(trimmed))
		}

		return 1
	}

	if rep := checker.CheckDependencies(ctx); !rep.OK {
		printReports(stdout, []preflight.Report{rep})
		return 1
	}

	fmt.Fprintln(stdout, okMarkStyle.Render("✓")+" dependencies installed")

	return 0
}

// printReports renders probe outcomes and reports whether any failed.
func printReports(w io.Writer, reports []preflight.Report) bool {
	failed := false

	for _, rep := range reports {
		if rep.OK {
			fmt.Fprintf(w, "%s %s: %s\n", okMarkStyle.Render("✓"), rep.Probe, rep.Detail)
			continue
		}

		failed = true

		fmt.Fprintf(w, "%s %s: %s\n", errorStyle.Render("✗"), rep.Probe, rep.Detail)

		if rep.Remediation == nil {
			continue
		}

		fmt.Fprintf(w, "  %s\n", dimStyle.Render(rep.Remediation.Summary))

		if len(rep.Remediation.Command) > 0 {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("run: "+strings.Join(rep.Remediation.Command, " ")))
		}
	}

	return failed
}
