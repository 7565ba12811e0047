package bslmcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/bsl-mcp-server/internal/bsl"
	"github.com/wagiedev/bsl-mcp-server/internal/cli"
	"github.com/wagiedev/bsl-mcp-server/internal/pathmap"
	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
	"github.com/wagiedev/bsl-mcp-server/internal/session"
	"github.com/wagiedev/bsl-mcp-server/internal/subprocess"
	"github.com/wagiedev/bsl-mcp-server/internal/transport"
)

// shutdownTimeout bounds how long Close waits for sessions to stop.
const shutdownTimeout = 30 * time.Second

// Server is a wired bridge: one-shot service, session pool, path mapper and
// dispatcher, plus the transport selected by the options.
//
// Lifecycle: a Server is single-use. Run blocks until the transport ends;
// Close releases the session pool and is safe to call multiple times.
type Server struct {
	log        *slog.Logger
	options    *Options
	javaPath   string
	pool       *session.Pool
	dispatcher *protocol.Dispatcher
	stdin      io.Reader
	stdout     io.Writer
}

// New validates the options, locates the Java runtime and wires the bridge.
// Returns JavaNotFoundError or JarNotFoundError when discovery fails.
func New(ctx context.Context, opts ...Option) (*Server, error) {
	o := applyOptions(opts)

	if err := o.options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log := o.logger.With("component", "server")

	javaPath := o.javaPath
	if javaPath == "" {
		discovered, err := cli.NewDiscoverer(&cli.Config{
			JavaPath: o.options.JavaPath,
			JarPath:  o.options.JarPath,
			Logger:   o.logger,
		}).Discover(ctx)
		if err != nil {
			return nil, err
		}

		javaPath = discovered
	}

	runner := o.runner
	if runner == nil {
		runner = subprocess.NewRunner(o.logger, subprocess.RunnerConfig{
			MaxConcurrent: o.options.MaxConcurrentRuns,
			Timeout:       o.options.RunTimeout,
			GracePeriod:   o.options.StopGracePeriod,
		})
	}

	launcher := o.launcher
	if launcher == nil {
		options := o.options

		launcher = func(projectPath string) session.Handle {
			return subprocess.New(o.logger, cli.SessionCommand(javaPath, options, projectPath), options.StopGracePeriod)
		}
	}

	pool := session.NewPool(o.logger, session.Config{
		MaxSize:       o.options.PoolMaxSize,
		TTL:           o.options.PoolTTL,
		SweepInterval: o.options.SweepInterval,
		Clock:         o.clock,
		Launcher:      launcher,
	})

	dispatcher := protocol.NewDispatcher(o.logger, protocol.Deps{
		Analyzer: bsl.NewService(o.logger, o.options, javaPath, runner),
		Sessions: pool,
		Paths:    pathmap.NewMapper(o.logger, o.options.HostRoot, o.options.ContainerRoot),
		Name:     Name,
		Version:  Version,
	})

	stdin, stdout := o.stdin, o.stdout
	if stdin == nil {
		stdin = os.Stdin
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	log.Info("Server configured",
		"java_path", javaPath,
		"jar_path", o.options.JarPath,
		"transport", o.options.Transport,
		"pool_max_size", o.options.PoolMaxSize,
		"path_mapping", o.options.HostRoot != "",
	)

	return &Server{
		log:        log,
		options:    o.options,
		javaPath:   javaPath,
		pool:       pool,
		dispatcher: dispatcher,
		stdin:      stdin,
		stdout:     stdout,
	}, nil
}

// Run starts the idle sweeper and serves the configured transport until it
// ends or ctx is done. The session pool is shut down before Run returns.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.pool.StartSweeper(gctx)

	g.Go(func() error {
		if s.options.Transport.IsHTTP() {
			return s.httpServer().Serve(gctx)
		}

		return transport.NewStdio(s.log, s.dispatcher, s.stdin, s.stdout, 0).Serve(gctx)
	})

	err := g.Wait()

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	return err
}

func (s *Server) httpServer() *transport.HTTPServer {
	return transport.NewHTTPServer(s.log, transport.HTTPConfig{
		Address: s.options.Address,
		Mode:    s.options.Transport,
		Name:    Name,
		Version: Version,
	}, s.dispatcher, s.pool)
}

// Handler returns the HTTP routes of the bridge regardless of the configured
// transport. Useful to mount the bridge in an existing server.
func (s *Server) Handler() http.Handler {
	return s.httpServer().Handler()
}

// Call invokes a catalogue method directly.
func (s *Server) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	return s.dispatcher.Call(ctx, method, params)
}

// Methods returns the catalogue method names.
func (s *Server) Methods() []string {
	return s.dispatcher.Methods()
}

// JavaPath returns the resolved Java runtime.
func (s *Server) JavaPath() string {
	return s.javaPath
}

// Close shuts down the session pool, stopping every live session.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.pool.Shutdown(ctx)
}
