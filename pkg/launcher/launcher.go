// Package launcher runs an external commit message generator process and
// normalizes its outcome. It owns the process boundary: argument
// marshalling, full capture of both output streams, payload extraction on
// clean exit, and the cancel-versus-exit race. Each Launch call owns
// exactly one process handle; nothing is shared across invocations.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredential is returned before any process is spawned when the
// invocation carries no API key.
var ErrMissingCredential = errors.New("launcher: missing API credential")

// ErrTimeout is wrapped into the failure when the configured Timeout
// elapses before the generator exits.
var ErrTimeout = errors.New("launcher: generator timed out")

// State identifies where an invocation is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateSucceeded
	StateFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateLaunching: "launching",
	StateRunning:   "running",
	StateSucceeded: "succeeded",
	StateFailed:    "failed",
	StateCancelled: "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ExitError is a process-level failure: the generator exited nonzero. The
// captured error stream is carried verbatim and stdout is never parsed.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("launcher: generator exited with code %d", e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// GeneratorError is a failure the generator itself reported: the process
// exited cleanly but its payload carries success=false.
type GeneratorError struct {
	Message string
}

func (e *GeneratorError) Error() string {
	if e.Message == "" {
		return "launcher: generator reported failure"
	}
	return "launcher: generator reported failure: " + e.Message
}

// Invocation holds the parameters for one generator run. A fresh value is
// constructed per user action; nothing is persisted.
type Invocation struct {
	RepoPath      string
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int
	MachineOutput bool
}

// Validate checks the parameters before any process is spawned. A missing
// credential short-circuits with ErrMissingCredential.
func (inv Invocation) Validate() error {
	if inv.APIKey == "" {
		return ErrMissingCredential
	}
	if inv.RepoPath == "" {
		return errors.New("launcher: repository path is required")
	}
	if inv.Temperature < 0 || inv.Temperature > 1 {
		return fmt.Errorf("launcher: temperature %v out of range [0, 1]", inv.Temperature)
	}
	if inv.MaxTokens <= 0 {
		return errors.New("launcher: max tokens must be positive")
	}
	return nil
}

// Args returns the generator argv for this invocation: the repository path
// as the positional argument, followed by named arguments and the
// machine-output flag.
func (inv Invocation) Args() []string {
	args := []string{
		inv.RepoPath,
		"--api-key", inv.APIKey,
		"--model", inv.Model,
		"--temperature", strconv.FormatFloat(inv.Temperature, 'f', -1, 64),
		"--max-tokens", strconv.Itoa(inv.MaxTokens),
	}

	if inv.MachineOutput {
		args = append(args, "--json")
	}

	return args
}

// Result is the terminal outcome of one invocation.
type Result struct {
	State    State
	Payload  *Payload // parsed payload, set when the process exited zero
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // terminal error for failed results
}

// Message returns the generated commit message for successful results.
func (r *Result) Message() string {
	if r.Payload != nil && r.Payload.CommitMessage != nil {
		return *r.Payload.CommitMessage
	}
	return ""
}

// FailureText returns the human-readable description of a failed result:
// the payload's error text when the generator reported failure, otherwise
// the terminal error, falling back to the captured error stream.
func (r *Result) FailureText() string {
	if r.Payload != nil && !r.Payload.Success && r.Payload.Error != "" {
		return r.Payload.Error
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return strings.TrimSpace(r.Stderr)
}

// Launcher runs external generator processes. The zero value is unusable;
// Command must name the generator argv prefix.
type Launcher struct {
	// Command is the generator command and its fixed leading arguments,
	// e.g. ["python3", "commit_generator.py"]. Invocation arguments are
	// appended per run.
	Command []string
	// Timeout bounds a single run. Zero means no limit beyond ctx. A hit
	// timeout is reported as a failure; cancellation of the caller's ctx
	// is reported as cancelled.
	Timeout time.Duration
	// OnState observes lifecycle transitions when set. Called
	// synchronously from Launch.
	OnState func(State)
}

// New creates a Launcher for the given generator command.
func New(command ...string) *Launcher {
	return &Launcher{Command: command}
}

// Launch runs one generator invocation to completion, or until ctx is
// cancelled. The returned Result always carries the terminal state.
// Failures return a typed error (*ExitError, *GeneratorError, *ParseError)
// alongside the failed Result, with Result.Err set to the same error;
// cancellation yields StateCancelled and a nil error.
func (l *Launcher) Launch(ctx context.Context, inv Invocation) (*Result, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if len(l.Command) == 0 {
		return nil, errors.New("launcher: no generator command configured")
	}

	runCtx := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	l.setState(StateLaunching)

	argv := append(append([]string{}, l.Command[1:]...), inv.Args()...)
	cmd := osexec.CommandContext(runCtx, l.Command[0], argv...) //nolint:gosec // command comes from configuration, not remote input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Descendant processes can keep the output pipes open after the
	// generator itself is killed; don't let Wait hang on them forever.
	cmd.WaitDelay = 3 * time.Second

	if err := cmd.Start(); err != nil {
		return l.fail(&Result{}, fmt.Errorf("launcher: start generator: %w", err))
	}

	l.setState(StateRunning)

	waitErr := cmd.Wait()

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// Killing the child races with its natural exit; when the caller's ctx
	// is done the run counts as cancelled regardless of which won.
	if ctx.Err() != nil {
		res.State = StateCancelled
		l.setState(StateCancelled)
		return res, nil
	}

	if runCtx.Err() != nil {
		return l.fail(res, fmt.Errorf("%w after %s", ErrTimeout, l.Timeout))
	}

	if waitErr != nil {
		var exitErr *osexec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return l.fail(res, &ExitError{Code: res.ExitCode, Stderr: res.Stderr})
		}
		return l.fail(res, fmt.Errorf("launcher: wait for generator: %w", waitErr))
	}

	payload, err := ExtractPayload(res.Stdout)
	if err != nil {
		return l.fail(res, err)
	}
	res.Payload = payload

	if !payload.Success {
		return l.fail(res, &GeneratorError{Message: payload.Error})
	}

	if strings.TrimSpace(res.Message()) == "" {
		return l.fail(res, &ParseError{Output: res.Stdout, Reason: "success payload missing commit_message"})
	}

	res.State = StateSucceeded
	l.setState(StateSucceeded)
	return res, nil
}

func (l *Launcher) fail(res *Result, err error) (*Result, error) {
	res.State = StateFailed
	res.Err = err
	l.setState(StateFailed)
	return res, err
}

func (l *Launcher) setState(s State) {
	if l.OnState != nil {
		l.OnState(s)
	}
}
