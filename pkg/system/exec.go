package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultTimeout bounds every command started by ExecRunner
const DefaultTimeout = 10 * time.Minute

// Runner executes host commands. Providers never call os/exec directly so
// that tests can substitute a recorder.
type Runner interface {
	// Run executes name with args and returns trimmed stdout
	Run(ctx context.Context, name string, args ...string) (string, error)

	// Shell runs a script with /bin/sh -c and reports whether it exited 0
	Shell(ctx context.Context, script string) (bool, error)
}

// ExitError describes a command that ran but exited non-zero
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// ExecRunner runs commands on the local host
type ExecRunner struct {
	// Timeout is the command execution timeout (default: 10 minutes)
	Timeout time.Duration
}

// NewExecRunner creates a runner with the default timeout
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Timeout: DefaultTimeout}
}

// WithTimeout sets the execution timeout
func (r *ExecRunner) WithTimeout(timeout time.Duration) *ExecRunner {
	r.Timeout = timeout
	return r
}

// Run executes a command and captures its output
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Command:  shellquote.Join(append([]string{name}, args...)...),
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Shell evaluates a guard script. A non-zero exit is a false result, not an
// error; only failures to start the shell are returned as errors.
func (r *ExecRunner) Shell(ctx context.Context, script string) (bool, error) {
	_, err := r.Run(ctx, "/bin/sh", "-c", script)
	if err == nil {
		return true, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func (r *ExecRunner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// RunLine splits a command line with shell quoting rules and runs it
func RunLine(ctx context.Context, r Runner, line string) (string, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return "", fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("no command specified")
	}
	return r.Run(ctx, argv[0], argv[1:]...)
}
