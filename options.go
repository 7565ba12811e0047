package bslmcp

import (
	"io"
	"log/slog"

	"github.com/wagiedev/bsl-mcp-server/internal/bsl"
	"github.com/wagiedev/bsl-mcp-server/internal/config"
	"github.com/wagiedev/bsl-mcp-server/internal/session"
)

// Options configures the bridge. See config.Options for the fields.
type Options = config.Options

// TransportMode selects how requests reach the server.
type TransportMode = config.TransportMode

// Transport modes.
const (
	TransportStdio  = config.TransportStdio
	TransportHTTP   = config.TransportHTTP
	TransportSSE    = config.TransportSSE
	TransportNDJSON = config.TransportNDJSON
)

// Clock is the time source used by the session pool.
type Clock = session.Clock

// Handle is a persistent language server process owned by a session.
type Handle = session.Handle

// Launcher builds the not-yet-started process for a project.
type Launcher = session.Launcher

// Runner executes one-shot language server invocations.
type Runner = bsl.Runner

// DefaultOptions returns Options populated with the default values.
func DefaultOptions() *Options {
	return config.Default()
}

// Option configures a Server using the functional options pattern.
type Option func(*serverOptions)

type serverOptions struct {
	logger   *slog.Logger
	options  *Options
	javaPath string
	clock    Clock
	launcher Launcher
	runner   Runner
	stdin    io.Reader
	stdout   io.Writer
}

// applyOptions applies functional options over the defaults.
func applyOptions(opts []Option) *serverOptions {
	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.options == nil {
		o.options = config.Default()
	}

	if o.logger == nil {
		o.logger = o.options.Logger
	}

	if o.logger == nil {
		o.logger = NopLogger()
	}

	return o
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithOptions sets the bridge configuration. Defaults apply when not set.
func WithOptions(options *Options) Option {
	return func(o *serverOptions) {
		o.options = options
	}
}

// WithJavaPath sets the resolved Java runtime and skips discovery.
func WithJavaPath(path string) Option {
	return func(o *serverOptions) {
		o.javaPath = path
	}
}

// WithClock sets the session pool time source.
func WithClock(clock Clock) Option {
	return func(o *serverOptions) {
		o.clock = clock
	}
}

// WithLauncher replaces the language server process used by sessions.
func WithLauncher(launcher Launcher) Option {
	return func(o *serverOptions) {
		o.launcher = launcher
	}
}

// WithRunner replaces the executor of one-shot analyze and format runs.
func WithRunner(runner Runner) Option {
	return func(o *serverOptions) {
		o.runner = runner
	}
}

// WithStdio sets the streams of the stdio transport.
// If not set, os.Stdin and os.Stdout are used.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *serverOptions) {
		o.stdin = in
		o.stdout = out
	}
}
