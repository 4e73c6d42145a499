// Package preflight runs advisory environment probes for an external
// generator: interpreter availability and dependency presence. A failed
// probe carries a remediation instead of blocking the invocation.
package preflight

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
)

// Probe names.
const (
	ProbeInterpreter  = "interpreter"
	ProbeDependencies = "dependencies"
)

// DefaultModules lists the import names the reference generator needs.
var DefaultModules = []string{"git", "google.generativeai", "langgraph"}

var interpreterCandidates = []string{"python3", "python"}

// pipPackages maps import names to the pip distribution providing them.
var pipPackages = map[string]string{
	"git":                    "gitpython",
	"google.generativeai":    "google-generativeai",
	"langgraph":              "langgraph",
	"langchain_core":         "langchain-core",
	"langchain_google_genai": "langchain-google-genai",
	"dotenv":                 "python-dotenv",
	"typer":                  "typer",
	"rich":                   "rich",
}

// Remediation is a suggested fix for a failed probe.
type Remediation struct {
	Summary string
	Command []string
}

// Report is the outcome of a single probe.
type Report struct {
	Probe       string
	OK          bool
	Detail      string
	Remediation *Remediation
}

// Runner executes a probe command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs probe commands through os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := osexec.CommandContext(ctx, name, args...).CombinedOutput()

	return string(out), err
}

// Checker probes the configured interpreter and its importable modules.
type Checker struct {
	// Interpreter is the command or path to probe. Empty resolves the first
	// of python3, python found on PATH.
	Interpreter string
	// Modules holds the import names the generator requires. Empty uses
	// DefaultModules.
	Modules []string
	// Runner executes probe commands. Nil uses ExecRunner.
	Runner Runner
}

// New creates a Checker for the given interpreter and module imports.
func New(interpreter string, modules ...string) *Checker {
	return &Checker{Interpreter: interpreter, Modules: modules}
}

// ResolveInterpreter returns the interpreter to probe: the configured one
// as-is, or the first PATH candidate.
func (c *Checker) ResolveInterpreter() (string, error) {
	if c.Interpreter != "" {
		return c.Interpreter, nil
	}

	for _, candidate := range interpreterCandidates {
		if path, err := osexec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", errors.New("preflight: no python interpreter found on PATH")
}

// Check runs both probes. The probes are independent and every report is
// returned even when the first fails.
func (c *Checker) Check(ctx context.Context) []Report {
	return []Report{c.CheckInterpreter(ctx), c.CheckDependencies(ctx)}
}

// CheckInterpreter probes that the interpreter resolves and runs.
func (c *Checker) CheckInterpreter(ctx context.Context) Report {
	rep := Report{Probe: ProbeInterpreter}

	interp, err := c.ResolveInterpreter()
	if err != nil {
		rep.Detail = err.Error()
		rep.Remediation = &Remediation{Summary: "Install Python 3.8 or newer and make it available on PATH"}

		return rep
	}

	out, err := c.run(ctx, interp, "--version")
	if err != nil {
		rep.Detail = probeDetail(out, err)
		rep.Remediation = &Remediation{
			Summary: fmt.Sprintf("Interpreter %s is not runnable; install Python 3.8 or newer", interp),
		}

		return rep
	}

	rep.OK = true
	rep.Detail = strings.TrimSpace(out)

	return rep
}

// CheckDependencies probes that every required module imports cleanly.
func (c *Checker) CheckDependencies(ctx context.Context) Report {
	rep := Report{Probe: ProbeDependencies}

	interp, err := c.ResolveInterpreter()
	if err != nil {
		rep.Detail = err.Error()
		rep.Remediation = &Remediation{Summary: "Install Python 3.8 or newer and make it available on PATH"}

		return rep
	}

	modules := c.modules()

	out, err := c.run(ctx, interp, "-c", "import "+strings.Join(modules, ", "))
	if err != nil {
		rep.Detail = probeDetail(out, err)
		rep.Remediation = &Remediation{
			Summary: "Install the generator's Python dependencies",
			Command: c.installCommand(interp),
		}

		return rep
	}

	rep.OK = true
	rep.Detail = fmt.Sprintf("%d modules importable", len(modules))

	return rep
}

// InstallDependencies runs the pip install remediation and returns the
// command output.
func (c *Checker) InstallDependencies(ctx context.Context) (string, error) {
	interp, err := c.ResolveInterpreter()
	if err != nil {
		return "", err
	}

	cmd := c.installCommand(interp)

	out, err := c.run(ctx, cmd[0], cmd[1:]...)
	if err != nil {
		return out, fmt.Errorf("preflight: install dependencies: %w", err)
	}

	return out, nil
}

func (c *Checker) installCommand(interp string) []string {
	cmd := []string{interp, "-m", "pip", "install"}
	for _, module := range c.modules() {
		cmd = append(cmd, pipPackage(module))
	}

	return cmd
}

func (c *Checker) modules() []string {
	if len(c.Modules) > 0 {
		return c.Modules
	}

	return DefaultModules
}

func (c *Checker) run(ctx context.Context, name string, args ...string) (string, error) {
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	return runner.Run(ctx, name, args...)
}

func pipPackage(module string) string {
	if pkg, ok := pipPackages[module]; ok {
		return pkg
	}

	return strings.ReplaceAll(module, "_", "-")
}

func probeDetail(output string, err error) string {
	if out := strings.TrimSpace(output); out != "" {
		return out
	}

	return err.Error()
}
