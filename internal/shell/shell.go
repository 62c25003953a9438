// Package shell runs external commands inside the project root.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// Result holds the outcome of a finished command. A non-zero exit code is
// not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	return r.Stdout + r.Stderr
}

// Runner executes commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command []string, timeout time.Duration) (Result, error)
}

// Exec runs commands with os/exec in a fixed working directory.
type Exec struct {
	Dir string
}

// NewExec returns a runner rooted at dir.
func NewExec(dir string) *Exec {
	return &Exec{Dir: dir}
}

var _ Runner = (*Exec)(nil)

// Run executes command (argv form, no shell) and waits at most timeout.
// A missing binary is reported as an error; a failing binary is reported
// through Result.ExitCode.
func (e *Exec) Run(ctx context.Context, command []string, timeout time.Duration) (Result, error) {
	if len(command) == 0 {
		return Result{}, errors.New("empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = e.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, command[0])
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("run %s: %w", command[0], err)
	}
	return res, nil
}
