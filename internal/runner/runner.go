package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/captioner/internal/logging"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
)

// defaultWaitDelay bounds how long Run waits for output pipes once a cancellable
// command has exited or been killed
const defaultWaitDelay = 10 * time.Second

// ErrExternalToolFailed matches every *ExitError via errors.Is
var ErrExternalToolFailed = errors.New("external tool failed")

// Command describes one external process invocation
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes an external command to completion
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExitError reports a tool that could not be started or exited non-zero.
// ExitCode is -1 when the process never started or was killed by a signal.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" && e.Err != nil {
		stderr = e.Err.Error()
	}
	return fmt.Sprintf("command %s failed with code %d: %s", e.Command, e.ExitCode, stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func (e *ExitError) Is(target error) bool {
	return target == ErrExternalToolFailed
}

// ExecRunner runs commands with os/exec, buffering stdout and stderr in full
type ExecRunner struct {
	logger    *logging.Logger
	waitDelay time.Duration
}

// NewExecRunner creates a new process runner
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ExecRunner{logger: logger, waitDelay: defaultWaitDelay}
}

// Run starts the command, waits for it to exit and returns its standard output.
// The process is killed if ctx is done before it exits.
func (r *ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// Without a deadline Run waits for every holder of the pipes, including
	// children the tool left behind.
	if ctx.Done() != nil {
		cmd.WaitDelay = r.waitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	// The tool exited 0 but a lingering child kept its pipes open past the wait delay.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		r.logger.WithField("command", c.Name).Warn("Tool exited cleanly but its output pipes stayed open")
		err = nil
	}

	if err == nil {
		r.logger.LogToolRun(c.Name, 0, duration, nil)
		metrics.RecordToolRun(c.Name, "success", duration.Seconds())
		return stdout.String(), nil
	}

	exitErr := &ExitError{
		Command:  c.Name,
		ExitCode: -1,
		Stderr:   stderr.String(),
		Err:      err,
	}

	var procErr *exec.ExitError
	if errors.As(err, &procErr) {
		exitErr.ExitCode = procErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		exitErr.Err = fmt.Errorf("%w: %v", ctxErr, err)
	}

	r.logger.LogToolRun(c.Name, exitErr.ExitCode, duration, exitErr)
	metrics.RecordToolRun(c.Name, "failure", duration.Seconds())

	return stdout.String(), exitErr
}
