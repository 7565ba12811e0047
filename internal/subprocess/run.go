package subprocess

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/wagiedev/bsl-mcp-server/internal/cli"
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// RunResult is the outcome of a one-shot invocation that ran to completion.
type RunResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// RunOnce spawns an independent child, waits for it to exit and captures
// combined stdout and stderr. A non-zero exit code is reported in the result,
// not as an error.
//
// When ctx ends the child receives SIGTERM and, after gracePeriod, SIGKILL.
func RunOnce(ctx context.Context, command cli.Command, gracePeriod time.Duration) (RunResult, error) {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	var output bytes.Buffer

	//nolint:gosec // G204: the command line is built from trusted configuration
	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = command.Env
	// Same writer for both streams: exec serializes the writes.
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = gracePeriod

	start := time.Now()
	err := cmd.Run()
	result := RunResult{
		ExitCode: -1,
		Output:   output.String(),
		Duration: time.Since(start),
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			ctxErr = fmt.Errorf("%w after %s: %w", errors.ErrProcessTimeout, result.Duration.Round(time.Millisecond), ctxErr)
		}

		return result, &errors.ProcessCommunicationError{Op: "run", Err: ctxErr}
	}

	if cmd.Process == nil {
		return result, &errors.ProcessStartError{Path: command.Path, Err: err}
	}

	if _, ok := stderrors.AsType[*exec.ExitError](err); ok {
		return result, nil
	}

	// The child exited but a grandchild kept the output pipe open.
	if stderrors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		return result, nil
	}

	return result, &errors.ProcessCommunicationError{Op: "run", Err: err}
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// MaxConcurrent bounds how many children run at once. Values below 1 mean 1.
	MaxConcurrent int

	// Timeout bounds every run. Zero leaves the caller's context as the only bound.
	Timeout time.Duration

	// GracePeriod is the SIGTERM to SIGKILL delay on timeout.
	GracePeriod time.Duration
}

// Runner executes one-shot invocations under an admission limit.
type Runner struct {
	log     *slog.Logger
	sem     *semaphore.Weighted
	timeout time.Duration
	grace   time.Duration
}

// NewRunner creates a Runner.
func NewRunner(log *slog.Logger, cfg RunnerConfig) *Runner {
	limit := max(cfg.MaxConcurrent, 1)

	return &Runner{
		log:     log.With("component", "runner"),
		sem:     semaphore.NewWeighted(int64(limit)),
		timeout: cfg.Timeout,
		grace:   cfg.GracePeriod,
	}
}

// Run waits for a free slot, then calls RunOnce with the configured timeout.
func (r *Runner) Run(ctx context.Context, command cli.Command) (RunResult, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return RunResult{ExitCode: -1}, &errors.ProcessCommunicationError{Op: "admit", Err: err}
	}
	defer r.sem.Release(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug("Running command", "command", command.String(), "dir", command.Dir)

	result, err := RunOnce(ctx, command, r.grace)
	if err != nil {
		r.log.Warn("Command failed", "command", command.Path, "error", err, "duration", result.Duration)

		return result, err
	}

	r.log.Debug("Command finished", "exit_code", result.ExitCode, "duration", result.Duration, "output_len", len(result.Output))

	return result, nil
}
