package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wagiedev/bsl-mcp-server/internal/cli"
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

const (
	// maxScanTokenSize is the maximum size of one response line.
	maxScanTokenSize = 1024 * 1024 // 1MB

	// DefaultGracePeriod is how long Close waits after SIGTERM before SIGKILL.
	DefaultGracePeriod = 10 * time.Second
)

// State is the lifecycle state of a Process.
type State int

const (
	// StateNotStarted is a handle that has not spawned its child yet.
	StateNotStarted State = iota
	// StateRunning is a handle with a live child.
	StateRunning
	// StateExited is a child that exited on its own before Close.
	StateExited
	// StateGracefullyStopped is a child that exited within the grace period.
	StateGracefullyStopped
	// StateForciblyKilled is a child that had to be killed.
	StateForciblyKilled
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateGracefullyStopped:
		return "gracefully_stopped"
	case StateForciblyKilled:
		return "forcibly_killed"
	default:
		return "unknown"
	}
}

// Process owns one persistent language server child.
//
// SendRequest is a strict half-duplex exchange without correlation ids: the
// caller must not issue a second request before the first one returns. The
// handle does not serialize callers itself.
type Process struct {
	log         *slog.Logger
	command     cli.Command
	gracePeriod time.Duration

	mu        sync.Mutex // Protects the fields below
	started   bool
	closed    bool
	final     State
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Scanner
	startedAt time.Time
	exited    chan struct{} // Closed once cmd.Wait returns

	closeOnce sync.Once
	closeErr  error
}

// New creates a handle for command. The child is not spawned until Start.
// A non-positive gracePeriod uses DefaultGracePeriod.
func New(log *slog.Logger, command cli.Command, gracePeriod time.Duration) *Process {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	return &Process{
		log:         log.With("component", "process"),
		command:     command,
		gracePeriod: gracePeriod,
	}
}

// Start spawns the child. It is a no-op while the child is alive and fails
// with ErrProcessClosed once the handle was closed or the child exited.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.ErrProcessClosed
	}

	if p.started {
		if p.aliveLocked() {
			return nil
		}

		return errors.ErrProcessClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// The child outlives the starting request, so it is not bound to ctx.
	//nolint:gosec // G204: the command line is built from trusted configuration
	cmd := exec.Command(p.command.Path, p.command.Args...)
	cmd.Dir = p.command.Dir
	cmd.Env = p.command.Env
	cmd.Stderr = &stderrLogger{log: p.log}
	cmd.WaitDelay = p.gracePeriod

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.ProcessStartError{Path: p.command.Path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.ProcessStartError{Path: p.command.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		p.log.Error("Failed to start process", "command", p.command.String(), "error", err)

		return &errors.ProcessStartError{Path: p.command.Path, Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = scanner
	p.started = true
	p.startedAt = time.Now()
	p.exited = make(chan struct{})

	go p.wait(cmd, p.exited)

	p.log.Info("Process started", "pid", cmd.Process.Pid, "dir", p.command.Dir)

	return nil
}

func (p *Process) wait(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	if err != nil {
		p.log.Debug("Process wait returned", "pid", cmd.Process.Pid, "error", err)
	} else {
		p.log.Debug("Process exited", "pid", cmd.Process.Pid)
	}

	close(exited)
}

// SendRequest writes one line and reads exactly one response line.
//
// If ctx ends before the response arrives the line stream can no longer be
// trusted, so the handle is closed in the background.
func (p *Process) SendRequest(ctx context.Context, line string) (string, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return "", &errors.ProcessCommunicationError{Op: "send", Err: errors.ErrProcessClosed}
	}

	if !p.started {
		p.mu.Unlock()

		return "", &errors.ProcessCommunicationError{Op: "send", Err: errors.ErrProcessNotStarted}
	}

	stdin, stdout, exited := p.stdin, p.stdout, p.exited
	p.mu.Unlock()

	select {
	case <-exited:
		return "", &errors.ProcessCommunicationError{Op: "send", Err: stderrors.New("process has exited")}
	default:
	}

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	type reply struct {
		line string
		err  error
	}

	done := make(chan reply, 1)

	go func() {
		if _, err := io.WriteString(stdin, line); err != nil {
			done <- reply{err: &errors.ProcessCommunicationError{Op: "write", Err: err}}

			return
		}

		if !stdout.Scan() {
			err := stdout.Err()
			if err == nil {
				err = io.EOF
			}

			done <- reply{err: &errors.ProcessCommunicationError{Op: "read", Err: err}}

			return
		}

		done <- reply{line: stdout.Text()}
	}()

	select {
	case r := <-done:
		return r.line, r.err

	case <-ctx.Done():
		p.log.Warn("Request abandoned mid-exchange, closing process", "error", ctx.Err())

		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		go func() { _ = p.Close() }()

		return "", &errors.ProcessCommunicationError{Op: "send", Err: ctx.Err()}
	}
}

// Close stops the child. Stdin is closed first, then SIGTERM is sent, and
// SIGKILL follows if the child is still alive after the grace period.
// It is safe to call Close multiple times.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.shutdown()
	})

	return p.closeErr
}

func (p *Process) shutdown() error {
	p.mu.Lock()
	p.closed = true
	started, cmd, stdin, exited := p.started, p.cmd, p.stdin, p.exited
	p.mu.Unlock()

	if !started {
		return nil
	}

	_ = stdin.Close()

	select {
	case <-exited:
		p.setFinal(StateGracefullyStopped)

		return nil
	default:
	}

	pid := cmd.Process.Pid
	p.log.Debug("Sending SIGTERM", "pid", pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		p.log.Debug("SIGTERM failed, escalating", "pid", pid, "error", err)
	}

	timer := time.NewTimer(p.gracePeriod)
	defer timer.Stop()

	select {
	case <-exited:
		p.setFinal(StateGracefullyStopped)
		p.log.Info("Process stopped", "pid", pid)

		return nil
	case <-timer.C:
	}

	p.log.Warn("Process ignored SIGTERM, killing", "pid", pid, "grace_period", p.gracePeriod)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process (pid %d): %w", pid, err)
	}

	<-exited
	p.setFinal(StateForciblyKilled)

	return nil
}

func (p *Process) setFinal(s State) {
	p.mu.Lock()
	p.final = s
	p.mu.Unlock()
}

// IsAlive reports whether the child is running.
func (p *Process) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.aliveLocked()
}

func (p *Process) aliveLocked() bool {
	if !p.started {
		return false
	}

	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// State returns the lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.final != StateNotStarted:
		return p.final
	case !p.started:
		return StateNotStarted
	case p.aliveLocked():
		return StateRunning
	default:
		return StateExited
	}
}

// PID returns the child pid, or 0 if never started.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// StartedAt returns when the child was spawned.
func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.startedAt
}

// Command returns the command the handle was built with.
func (p *Process) Command() cli.Command {
	return p.command
}

// stderrLogger forwards complete stderr lines to the debug log.
type stderrLogger struct {
	log *slog.Logger
	buf bytes.Buffer
}

func (w *stderrLogger) Write(b []byte) (int, error) {
	w.buf.Write(b)

	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)

			break
		}

		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.log.Debug("Process stderr", "line", line)
		}
	}

	return len(b), nil
}
