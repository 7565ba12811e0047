package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/bsl-mcp-server/internal/config"
	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

const (
	// DefaultKeepAlive is the interval of SSE keepalive comments.
	DefaultKeepAlive = 15 * time.Second

	// DefaultMaxBodyBytes bounds a request body.
	DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Dispatcher is the protocol dispatcher as seen by the HTTP server.
type Dispatcher interface {
	Handler
	Call(ctx context.Context, method string, params protocol.Params) (any, error)
	Analyze(ctx context.Context, params protocol.Params) (*protocol.AnalyzeResult, error)
}

// PoolStats reports session pool occupancy for /status.
type PoolStats interface {
	Len() int
	MaxSize() int
}

// HTTPConfig configures an HTTPServer.
type HTTPConfig struct {
	Address string
	Mode    config.TransportMode
	Name    string
	Version string

	// KeepAlive is the SSE keepalive interval. Zero uses DefaultKeepAlive.
	KeepAlive time.Duration

	// MaxBodyBytes bounds request bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// HTTPServer serves the dispatcher over HTTP.
type HTTPServer struct {
	log        *slog.Logger
	cfg        HTTPConfig
	dispatcher Dispatcher
	pool       PoolStats
	engine     *gin.Engine
}

// NewHTTPServer creates an HTTP transport and registers its routes.
func NewHTTPServer(log *slog.Logger, cfg HTTPConfig, dispatcher Dispatcher, pool PoolStats) *HTTPServer {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.Mode == "" {
		cfg.Mode = config.TransportHTTP
	}

	s := &HTTPServer{
		log:        log.With("component", "http_transport"),
		cfg:        cfg,
		dispatcher: dispatcher,
		pool:       pool,
	}

	s.engine = gin.New()
	s.engine.Use(recovery(s.log), requestLogger(s.log), corsPolicy(), s.limitBody)
	s.routes()

	return s
}

func (s *HTTPServer) routes() {
	s.engine.POST("/mcp", s.handleEnvelope)

	api := s.engine.Group("/api")
	{
		api.POST("/analyze", s.callBody(protocol.MethodAnalyze))
		api.POST("/format", s.callBody(protocol.MethodFormat))
		api.GET("/path-info", s.callQuery(protocol.MethodPathInfo))

		api.POST("/session/start", s.callBody(protocol.MethodSessionStart))
		api.GET("/session/status", s.callQuery(protocol.MethodSessionStatus))
		api.POST("/session/stop", s.callBody(protocol.MethodSessionStop))
		api.POST("/session/send", s.callBody(protocol.MethodSessionSend))
		api.GET("/session/list", s.callQuery(protocol.MethodSessionList))

		stream := api.Group("/stream/analyze")
		stream.GET("/sse", s.handleSSE)
		stream.POST("/sse", s.handleSSE)
		stream.GET("/ndjson", s.handleNDJSON)
		stream.POST("/ndjson", s.handleNDJSON)
	}

	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/status/health", s.handleHealth)
}

// Handler returns the routed http.Handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Serve listens on the configured address until ctx is done.
func (s *HTTPServer) Serve(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}

	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
func (s *HTTPServer) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP transport listening", "address", ln.Addr().String(), "mode", s.cfg.Mode)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("HTTP shutdown did not complete", "error", err)

			return fmt.Errorf("shutdown http: %w", err)
		}

		s.log.Info("HTTP transport stopped")

		return nil
	})

	return g.Wait()
}

func (s *HTTPServer) limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	}

	c.Next()
}

// handleEnvelope serves one JSON-RPC envelope.
func (s *HTTPServer) handleEnvelope(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.abort(c, &protocol.ErrorObject{Code: protocol.CodeInvalidRequest, Message: "read body: " + err.Error()})

		return
	}

	req, resp := protocol.ParseRequest(body)
	if resp == nil {
		resp = s.dispatcher.Handle(c.Request.Context(), req)
	}

	if resp == nil {
		c.Status(http.StatusAccepted)

		return
	}

	c.JSON(protocol.StatusFor(resp), resp)
}

// callBody serves a REST route whose params come from a JSON object body.
func (s *HTTPServer) callBody(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, err := bodyParams(c)
		if err != nil {
			s.abort(c, protocol.ErrorFor(err))

			return
		}

		s.call(c, method, params)
	}
}

// callQuery serves a REST route whose params come from the query string.
func (s *HTTPServer) callQuery(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.call(c, method, queryParams(c))
	}
}

func (s *HTTPServer) call(c *gin.Context, method string, params protocol.Params) {
	result, err := s.dispatcher.Call(c.Request.Context(), method, params)
	if err != nil {
		s.abort(c, protocol.ErrorFor(err))

		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *HTTPServer) abort(c *gin.Context, obj *protocol.ErrorObject) {
	status := protocol.HTTPStatus(obj.Code)
	if status >= http.StatusInternalServerError {
		s.log.Warn("Request failed", "path", c.Request.URL.Path, "code", obj.Code, "error", obj.Message)
	}

	c.AbortWithStatusJSON(status, errorBody(obj))
}

func errorBody(obj *protocol.ErrorObject) gin.H {
	body := gin.H{"error": obj.Message, "code": obj.Code}
	if obj.Data != nil {
		body["data"] = obj.Data
	}

	return body
}

func (s *HTTPServer) handleStatus(c *gin.Context) {
	body := gin.H{
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"name":      s.cfg.Name,
		"version":   s.cfg.Version,
		"transport": gin.H{
			"mode":    s.cfg.Mode,
			"address": s.cfg.Address,
		},
	}

	if s.pool != nil {
		body["sessions"] = gin.H{"active": s.pool.Len(), "max": s.pool.MaxSize()}
	}

	c.JSON(http.StatusOK, body)
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
