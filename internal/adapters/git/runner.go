package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes git commands in a working directory.
type Runner interface {
	// Run executes git with args in dir and returns its trimmed standard output.
	// A non-zero exit status is returned as *CommandError.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// CommandError describes a git invocation that exited with a non-zero status.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// exitCode returns the exit status carried by err, or -1 if err is not a *CommandError.
func exitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct {
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewExecRunner creates an ExecRunner for the git binary on PATH.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Binary: "git"}
}

// Run executes git with args in dir.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	// Never block on a credential prompt in CI.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Args:     args,
				Stderr:   strings.TrimSpace(stderr.String()),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return "", fmt.Errorf("failed to run git %s: %w", strings.Join(args, " "), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
