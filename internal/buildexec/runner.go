// Package buildexec runs build-and-test commands under a wall-clock timeout.
package buildexec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrBuildTimeout is returned when a build exceeds its configured bound.
var ErrBuildTimeout = errors.New("Build timed out")

// Result captures one build execution.
type Result struct {
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Runner executes a fixed build command.
type Runner struct {
	command []string
	timeout time.Duration
	env     map[string]string
}

// NewRunner creates a runner. An empty command defaults to "mvn clean test".
func NewRunner(command string, timeout time.Duration, env map[string]string) *Runner {
	if strings.TrimSpace(command) == "" {
		command = "mvn clean test"
	}
	return &Runner{
		command: strings.Fields(command),
		timeout: timeout,
		env:     env,
	}
}

// Run executes the build in dir. Exceeding the timeout terminates the
// process and returns ErrBuildTimeout; a failing build is a Result with
// Success=false, not an error.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range r.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrBuildTimeout
	}

	res := &Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: elapsed,
	}

	if err == nil {
		res.Success = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, err
}
