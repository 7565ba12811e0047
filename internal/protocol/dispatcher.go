package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/wagiedev/bsl-mcp-server/internal/bsl"
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
	"github.com/wagiedev/bsl-mcp-server/internal/mcp"
	"github.com/wagiedev/bsl-mcp-server/internal/pathmap"
	"github.com/wagiedev/bsl-mcp-server/internal/report"
	"github.com/wagiedev/bsl-mcp-server/internal/session"
)

// Analyzer runs one-shot analysis and formatting.
type Analyzer interface {
	Analyze(ctx context.Context, req bsl.AnalyzeRequest) (bsl.Result[report.Analysis], error)
	Format(ctx context.Context, req bsl.FormatRequest) (bsl.Result[bsl.Formatted], error)
}

// Sessions is the session pool as seen by the dispatcher.
type Sessions interface {
	Create(ctx context.Context, projectPath string) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Stop(id string) bool
	List() []session.Info
}

// PathMapper translates and inspects client paths.
type PathMapper interface {
	ToContainer(hostPath string) (string, error)
	Validate(path string) bool
	Inspect(hostPath string) (pathmap.Info, error)
}

// Deps are the collaborators a Dispatcher routes to.
type Deps struct {
	Analyzer Analyzer
	Sessions Sessions
	Paths    PathMapper

	// Name and Version identify the server in MCP handshakes.
	Name    string
	Version string
}

// Handler serves one method.
type Handler func(ctx context.Context, params Params) (any, error)

// Dispatcher routes requests to the operation catalogue.
//
// A Dispatcher is safe for concurrent use. Requests with an id can be
// cancelled while in flight by a notifications/cancelled notification.
type Dispatcher struct {
	log      *slog.Logger
	analyzer Analyzer
	sessions Sessions
	paths    PathMapper
	tools    *mcp.Registry

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	inFlightMu sync.Mutex
	inFlight   map[string]*inFlightRequest
}

type inFlightRequest struct {
	method    string
	cancel    context.CancelFunc
	startTime time.Time
}

// NewDispatcher creates a Dispatcher with the full operation catalogue and
// the MCP tools registered.
func NewDispatcher(log *slog.Logger, deps Deps) *Dispatcher {
	if deps.Name == "" {
		deps.Name = "bsl-mcp-server"
	}

	d := &Dispatcher{
		log:      log.With("component", "dispatcher"),
		analyzer: deps.Analyzer,
		sessions: deps.Sessions,
		paths:    deps.Paths,
		tools:    mcp.NewRegistry(deps.Name, deps.Version),
		handlers: make(map[string]Handler, 16),
		inFlight: make(map[string]*inFlightRequest, 8),
	}

	d.registerCatalogue()
	d.registerTools()

	return d
}

// Register installs handler for method, replacing any previous one.
func (d *Dispatcher) Register(method string, handler Handler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.handlers[method] = handler
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Tools returns the MCP tool registry.
func (d *Dispatcher) Tools() *mcp.Registry {
	return d.tools
}

// Handle serves one envelope. It returns nil for notifications.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) *Response {
	if req.IsNotification() {
		d.notify(req)

		return nil
	}

	if req.Method == "" || (req.JSONRPC != "" && req.JSONRPC != Version) {
		return NewError(req.ID, ErrorFor(fmt.Errorf("%w: method is required and jsonrpc must be %q", errInvalidRequest, Version)))
	}

	params, err := decodeParams(req.Params)
	if err != nil {
		return NewError(req.ID, ErrorFor(err))
	}

	if key := idKey(req.ID); key != "" {
		var cancel context.CancelFunc

		ctx, cancel = context.WithCancel(ctx)
		defer cancel()

		d.track(key, req.Method, cancel)
		defer d.untrack(key)
	}

	start := time.Now()

	result, err := d.Call(ctx, req.Method, params)
	if err != nil {
		obj := ErrorFor(err)
		d.log.Warn("Request failed",
			"method", req.Method,
			"code", obj.Code,
			"error", err,
			"duration", time.Since(start),
		)

		return NewError(req.ID, obj)
	}

	d.log.Debug("Request completed", "method", req.Method, "duration", time.Since(start))

	return NewResult(req.ID, result)
}

// Call invokes method directly. Panics in handlers are converted to
// internal errors.
func (d *Dispatcher) Call(ctx context.Context, method string, params Params) (result any, err error) {
	d.handlersMu.RLock()
	handler, ok := d.handlers[method]
	d.handlersMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrMethodNotFound, method)
	}

	if params == nil {
		params = Params{}
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Handler panicked", "method", method, "panic", r)
			err = fmt.Errorf("internal error in %s: %v", method, r)
		}
	}()

	return handler(ctx, params)
}

// notify handles notifications. Only cancellation has an effect.
func (d *Dispatcher) notify(req *Request) {
	if req.Method != "notifications/cancelled" {
		d.log.Debug("Ignoring notification", "method", req.Method)

		return
	}

	params, err := decodeParams(req.Params)
	if err != nil {
		d.log.Warn("Malformed cancel notification", "error", err)

		return
	}

	id, ok := params["requestId"]
	if !ok {
		return
	}

	d.CancelRequest(canonicalID(id))
}

// CancelRequest cancels the in-flight request with the given canonical id.
// It reports whether such a request was found.
func (d *Dispatcher) CancelRequest(key string) bool {
	d.inFlightMu.Lock()
	op, ok := d.inFlight[key]
	d.inFlightMu.Unlock()

	if !ok {
		d.log.Debug("Cancel for unknown request", "request_id", key)

		return false
	}

	d.log.Info("Cancelling request", "request_id", key, "method", op.method, "elapsed", time.Since(op.startTime))
	op.cancel()

	return true
}

// InFlight returns the number of requests currently being served.
func (d *Dispatcher) InFlight() int {
	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	return len(d.inFlight)
}

func (d *Dispatcher) track(key, method string, cancel context.CancelFunc) {
	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	d.inFlight[key] = &inFlightRequest{method: method, cancel: cancel, startTime: time.Now()}
}

func (d *Dispatcher) untrack(key string) {
	d.inFlightMu.Lock()
	defer d.inFlightMu.Unlock()

	delete(d.inFlight, key)
}
