// Package process implements the CommandRunner port with os/exec.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommandRunner = (*Runner)(nil)

// Runner executes commands as child processes, each bounded by a timeout.
type Runner struct {
	timeout time.Duration
}

// NewRunner returns a Runner. A zero timeout falls back to five minutes.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{timeout: timeout}
}

// Run starts cmd and waits for it. Output is captured in full.
func (r *Runner) Run(ctx context.Context, cmd model.Command) (model.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := model.CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	clog.FromContext(ctx).Debug("command finished",
		"command", cmd.String(),
		"dir", cmd.Dir,
		"duration", res.Duration.Round(time.Millisecond),
		"error", err,
	)

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return res, fmt.Errorf("%w: %s", driven.ErrCommandNotFound, cmd.Name)
		case ctx.Err() != nil:
			return res, fmt.Errorf("running %s: %w", cmd.String(), ctx.Err())
		default:
			return res, fmt.Errorf("running %s: %w", cmd.String(), err)
		}
	}

	if res.ExitCode == -1 && ctx.Err() != nil {
		return res, fmt.Errorf("running %s: %w", cmd.String(), ctx.Err())
	}

	if cmd.Check && res.ExitCode != 0 {
		return res, &driven.ExitError{Command: cmd.String(), Result: res}
	}

	return res, nil
}
