package session

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Session status values reported by Info.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Handle is the persistent process a session owns.
type Handle interface {
	Start(ctx context.Context) error
	SendRequest(ctx context.Context, line string) (string, error)
	Close() error
	IsAlive() bool
}

// Session binds a persistent process to a project.
type Session struct {
	ID          string
	ProjectPath string
	CreatedAt   time.Time

	handle     Handle
	clock      Clock
	lastAccess atomic.Int64        // UnixNano
	turn       *semaphore.Weighted // One exchange in flight per session
}

// Info is a point-in-time view of a session.
type Info struct {
	ID          string
	ProjectPath string
	Status      string
	Uptime      time.Duration
	CreatedAt   time.Time
	LastAccess  time.Time
}

func newSession(id, projectPath string, handle Handle, clock Clock) *Session {
	now := clock.Now()

	s := &Session{
		ID:          id,
		ProjectPath: projectPath,
		CreatedAt:   now,
		handle:      handle,
		clock:       clock,
		turn:        semaphore.NewWeighted(1),
	}
	s.lastAccess.Store(now.UnixNano())

	return s
}

// SendRequest performs one line exchange with the session's process.
//
// The process protocol carries no correlation id, so exchanges on one session
// are serialized here. Waiting for the turn honors ctx.
func (s *Session) SendRequest(ctx context.Context, line string) (string, error) {
	if err := s.turn.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.turn.Release(1)

	s.touch()

	return s.handle.SendRequest(ctx, line)
}

// LastAccess returns the time of the latest lookup or use.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// IsAlive reports whether the session's process is running.
func (s *Session) IsAlive() bool {
	return s.handle.IsAlive()
}

// Status returns StatusRunning or StatusStopped.
func (s *Session) Status() string {
	if s.handle.IsAlive() {
		return StatusRunning
	}

	return StatusStopped
}

// Uptime returns how long ago the session was created.
func (s *Session) Uptime() time.Duration {
	return s.clock.Now().Sub(s.CreatedAt)
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	return Info{
		ID:          s.ID,
		ProjectPath: s.ProjectPath,
		Status:      s.Status(),
		Uptime:      s.Uptime(),
		CreatedAt:   s.CreatedAt,
		LastAccess:  s.LastAccess(),
	}
}

func (s *Session) touch() {
	s.lastAccess.Store(s.clock.Now().UnixNano())
}

func (s *Session) close() error {
	return s.handle.Close()
}
