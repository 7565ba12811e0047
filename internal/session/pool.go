package session

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// Pool defaults.
const (
	DefaultMaxSize       = 5
	DefaultTTL           = 60 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Launcher builds the not-yet-started process for a project.
type Launcher func(projectPath string) Handle

// Config configures a Pool.
type Config struct {
	// MaxSize bounds the number of registered sessions.
	MaxSize int

	// TTL is the idle time after which the sweep removes a session.
	TTL time.Duration

	// SweepInterval is the period of the idle sweep.
	SweepInterval time.Duration

	// Clock is the time source. Nil uses SystemClock.
	Clock Clock

	// Launcher builds session processes. Required.
	Launcher Launcher
}

// Pool is a bounded registry of sessions safe for concurrent use.
//
// Mutations of the registry happen under mu. Touches happen under the read
// lock and the sweep decides and removes under the write lock, so a session
// touched concurrently with a sweep is judged on its fresh access time.
type Pool struct {
	log      *slog.Logger
	maxSize  int
	ttl      time.Duration
	interval time.Duration
	clock    Clock
	launch   Launcher

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	// Sweeper lifecycle
	sweepOnce    sync.Once
	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup
}

// NewPool creates a pool. Zero values in cfg fall back to the defaults.
func NewPool(log *slog.Logger, cfg Config) *Pool {
	if cfg.MaxSize < 1 {
		cfg.MaxSize = DefaultMaxSize
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	return &Pool{
		log:      log.With("component", "session_pool"),
		maxSize:  cfg.MaxSize,
		ttl:      cfg.TTL,
		interval: cfg.SweepInterval,
		clock:    cfg.Clock,
		launch:   cfg.Launcher,
		sessions: make(map[string]*Session, cfg.MaxSize),
		done:     make(chan struct{}),
	}
}

// Create starts a session for projectPath.
//
// The process is started before the registry is locked. Eviction of the least
// recently used sessions and insertion of the new one then happen in a single
// critical section, so the registry never holds more than MaxSize entries.
// Evicted processes are closed before Create returns.
func (p *Pool) Create(ctx context.Context, projectPath string) (*Session, error) {
	if p.isClosed() {
		return nil, errors.ErrPoolClosed
	}

	handle := p.launch(projectPath)

	if err := handle.Start(ctx); err != nil {
		_ = handle.Close()

		return nil, fmt.Errorf("start session process: %w", err)
	}

	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		_ = handle.Close()

		return nil, errors.ErrPoolClosed
	}

	id := uuid.NewString()
	for p.sessions[id] != nil {
		id = uuid.NewString()
	}

	s := newSession(id, projectPath, handle, p.clock)

	var evicted []*Session

	for len(p.sessions) >= p.maxSize {
		victim := p.oldestLocked()
		delete(p.sessions, victim.ID)
		evicted = append(evicted, victim)
	}

	p.sessions[id] = s
	size := len(p.sessions)

	p.mu.Unlock()

	for _, victim := range evicted {
		p.log.Info("Evicting least recently used session",
			"session_id", victim.ID,
			"project", victim.ProjectPath,
			"last_access", victim.LastAccess(),
		)

		if err := victim.close(); err != nil {
			p.log.Warn("Failed to close evicted session", "session_id", victim.ID, "error", err)
		}
	}

	p.log.Info("Session created", "session_id", id, "project", projectPath, "pool_size", size)

	return s, nil
}

// oldestLocked returns the session with the oldest last access, ties broken
// by the smaller id. The caller holds mu and the registry is non-empty.
func (p *Pool) oldestLocked() *Session {
	var oldest *Session

	for _, s := range p.sessions {
		if oldest == nil {
			oldest = s

			continue
		}

		if c := s.LastAccess().Compare(oldest.LastAccess()); c < 0 || (c == 0 && s.ID < oldest.ID) {
			oldest = s
		}
	}

	return oldest
}

// Get returns the session and updates its last access time.
func (p *Pool) Get(id string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.sessions[id]
	if ok {
		s.touch()
	}

	return s, ok
}

// Stop removes and closes the session. It reports whether the id was registered.
func (p *Pool) Stop(id string) bool {
	p.mu.Lock()
	s, ok := p.sessions[id]
	delete(p.sessions, id)
	p.mu.Unlock()

	if !ok {
		return false
	}

	if err := s.close(); err != nil {
		p.log.Warn("Failed to close stopped session", "session_id", id, "error", err)
	}

	p.log.Info("Session stopped", "session_id", id)

	return true
}

// List returns a snapshot of every session ordered by id.
func (p *Pool) List() []Info {
	p.mu.RLock()

	infos := make([]Info, 0, len(p.sessions))
	for _, s := range p.sessions {
		infos = append(infos, s.Info())
	}

	p.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.ID, b.ID) })

	return infos
}

// Len returns the number of registered sessions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.sessions)
}

// MaxSize returns the configured capacity.
func (p *Pool) MaxSize() int {
	return p.maxSize
}

// Sweep removes sessions idle for at least the TTL and sessions whose process
// has died, then closes them. It returns the number removed.
func (p *Pool) Sweep() int {
	p.mu.Lock()

	now := p.clock.Now()

	var expired []*Session

	for id, s := range p.sessions {
		idle := now.Sub(s.LastAccess())
		if idle >= p.ttl || !s.IsAlive() {
			delete(p.sessions, id)
			expired = append(expired, s)
		}
	}

	p.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	var wg sync.WaitGroup

	for _, s := range expired {
		wg.Go(func() {
			p.log.Info("Sweeping idle session", "session_id", s.ID, "idle", now.Sub(s.LastAccess()))

			if err := s.close(); err != nil {
				p.log.Warn("Failed to close swept session", "session_id", s.ID, "error", err)
			}
		})
	}

	wg.Wait()

	return len(expired)
}

// StartSweeper launches the periodic idle sweep. It runs until ctx is done or
// Shutdown is called. Later calls are no-ops.
func (p *Pool) StartSweeper(ctx context.Context) {
	p.sweepOnce.Do(func() {
		p.wg.Go(func() {
			p.sweepLoop(ctx)
		})
	})
}

func (p *Pool) sweepLoop(ctx context.Context) {
	p.log.Debug("Sweeper started", "interval", p.interval, "ttl", p.ttl)
	defer p.log.Debug("Sweeper stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			if n := p.Sweep(); n > 0 {
				p.log.Info("Idle sweep removed sessions", "removed", n, "pool_size", p.Len())
			}
		}
	}
}

// Shutdown stops the sweeper, waiting for it at most until ctx is done, then
// closes every remaining session and clears the registry. It is safe to call
// more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error

	p.shutdownOnce.Do(func() {
		close(p.done)

		stopped := make(chan struct{})

		go func() {
			p.wg.Wait()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-ctx.Done():
			p.log.Warn("Sweeper did not stop in time", "error", ctx.Err())
			err = fmt.Errorf("wait for sweeper: %w", ctx.Err())
		}

		p.mu.Lock()
		p.closed = true
		remaining := make([]*Session, 0, len(p.sessions))

		for _, s := range p.sessions {
			remaining = append(remaining, s)
		}
		p.mu.Unlock()

		var wg sync.WaitGroup

		for _, s := range remaining {
			wg.Go(func() {
				if closeErr := s.close(); closeErr != nil {
					p.log.Warn("Failed to close session on shutdown", "session_id", s.ID, "error", closeErr)
				}
			})
		}

		wg.Wait()

		p.mu.Lock()
		clear(p.sessions)
		p.mu.Unlock()

		p.log.Info("Session pool shut down", "closed_sessions", len(remaining))
	})

	return err
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.closed
}
