package bslmcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
	"github.com/wagiedev/bsl-mcp-server/internal/cli"
	"github.com/wagiedev/bsl-mcp-server/internal/subprocess"
)

const analysisOutput = `{"fileinfos":[{"path":"Module.bsl","diagnostics":[` +
	`{"severity":"Error","code":"ParseError","message":"bad token","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}}}]}]}`

type stubRunner struct {
	calls atomic.Int32
}

func (r *stubRunner) Run(context.Context, cli.Command) (subprocess.RunResult, error) {
	r.calls.Add(1)

	return subprocess.RunResult{Output: analysisOutput}, nil
}

type stubHandle struct {
	alive atomic.Bool
}

func (h *stubHandle) Start(context.Context) error {
	h.alive.Store(true)

	return nil
}

func (h *stubHandle) SendRequest(_ context.Context, line string) (string, error) {
	return "echo:" + line, nil
}

func (h *stubHandle) Close() error {
	h.alive.Store(false)

	return nil
}

func (h *stubHandle) IsAlive() bool { return h.alive.Load() }

type fixture struct {
	hostRoot string
	opts     *bslmcp.Options
	runner   *stubRunner
	handles  atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demo", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo", "src", "Module.bsl"), []byte("Процедура А()\nКонецПроцедуры\n"), 0o600))

	opts := bslmcp.DefaultOptions()
	opts.ReportsDir = filepath.Join(t.TempDir(), "reports")
	opts.HostRoot = "/home/dev/projects"
	opts.ContainerRoot = root

	return &fixture{hostRoot: "/home/dev/projects", opts: opts, runner: &stubRunner{}}
}

func (f *fixture) options(extra ...bslmcp.Option) []bslmcp.Option {
	return append([]bslmcp.Option{
		bslmcp.WithOptions(f.opts),
		bslmcp.WithJavaPath("/usr/bin/java"),
		bslmcp.WithRunner(f.runner),
		bslmcp.WithLauncher(func(string) bslmcp.Handle {
			f.handles.Add(1)

			return &stubHandle{}
		}),
	}, extra...)
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	opts := bslmcp.DefaultOptions()
	opts.PoolMaxSize = 0

	_, err := bslmcp.New(context.Background(), bslmcp.WithOptions(opts), bslmcp.WithJavaPath("/usr/bin/java"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "pool max size")
}

func TestNew_ReportsMissingJava(t *testing.T) {
	opts := bslmcp.DefaultOptions()
	opts.JavaPath = filepath.Join(t.TempDir(), "no-such-java")

	_, err := bslmcp.New(context.Background(), bslmcp.WithOptions(opts))

	_, ok := stderrors.AsType[*bslmcp.JavaNotFoundError](err)
	require.True(t, ok, "got %v", err)
	require.Equal(t, -32002, bslmcp.ErrorCode(err))
}

func TestServer_CallAnalyze(t *testing.T) {
	f := newFixture(t)

	err := bslmcp.WithServer(context.Background(), func(s *bslmcp.Server) error {
		result, err := s.Call(context.Background(), "analyze", map[string]any{
			"sourcePath": f.hostRoot + "/demo/src",
		})
		require.NoError(t, err)

		data, err := json.Marshal(result)
		require.NoError(t, err)
		require.Contains(t, string(data), `"ParseError"`)
		require.Contains(t, string(data), `"errors":1`)

		return nil
	}, f.options()...)

	require.NoError(t, err)
	require.EqualValues(t, 1, f.runner.calls.Load())
}

func TestServer_CallErrorsCarryCodes(t *testing.T) {
	f := newFixture(t)

	srv, err := bslmcp.New(context.Background(), f.options()...)
	require.NoError(t, err)

	defer srv.Close()

	_, err = srv.Call(context.Background(), "session.status", map[string]any{"sessionId": "missing"})

	_, ok := stderrors.AsType[*bslmcp.SessionNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, -32004, bslmcp.ErrorCode(err))

	_, err = srv.Call(context.Background(), "analyze", map[string]any{"sourcePath": "/elsewhere/demo"})
	require.ErrorIs(t, err, bslmcp.ErrOutsideRoot)

	require.Zero(t, bslmcp.ErrorCode(nil))
	require.Contains(t, srv.Methods(), "session.send")
}

func TestServer_RunStdio(t *testing.T) {
	f := newFixture(t)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"session.start","params":{"projectPath":"` + f.hostRoot + `/demo"}}`,
	}, "\n") + "\n"

	var out bytes.Buffer

	srv, err := bslmcp.New(context.Background(), f.options(bslmcp.WithStdio(strings.NewReader(in), &out))...)
	require.NoError(t, err)
	require.NoError(t, srv.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	byID := map[float64]map[string]any{}

	for _, line := range lines {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		byID[resp["id"].(float64)] = resp
	}

	serverInfo := byID[1]["result"].(map[string]any)["serverInfo"].(map[string]any)
	require.Equal(t, bslmcp.Name, serverInfo["name"])

	started := byID[2]["result"].(map[string]any)
	require.NotEmpty(t, started["sessionId"])
	require.EqualValues(t, 1, f.handles.Load())
}

func TestServer_Handler(t *testing.T) {
	f := newFixture(t)

	srv, err := bslmcp.New(context.Background(), f.options()...)
	require.NoError(t, err)

	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"running"`)
	require.Contains(t, w.Body.String(), bslmcp.Version)
}

func TestWithServer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bslmcp.WithServer(ctx, func(*bslmcp.Server) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log, err := bslmcp.NewLogger(&buf, "warn", "json")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "k", "v")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = bslmcp.NewLogger(&buf, "loud", "text")
	require.Error(t, err)

	_, err = bslmcp.NewLogger(&buf, "info", "xml")
	require.Error(t, err)
}
