package protocol

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/bsl-mcp-server/internal/bsl"
	"github.com/wagiedev/bsl-mcp-server/internal/pathmap"
	"github.com/wagiedev/bsl-mcp-server/internal/report"
	"github.com/wagiedev/bsl-mcp-server/internal/session"
)

const hostRoot = "/home/dev/projects"

type fakeAnalyzer struct {
	mu       sync.Mutex
	analyzed []bsl.AnalyzeRequest
	formats  []bsl.FormatRequest

	analysis bsl.Result[report.Analysis]
	format   bsl.Result[bsl.Formatted]
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req bsl.AnalyzeRequest) (bsl.Result[report.Analysis], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.analyzed = append(f.analyzed, req)

	return f.analysis, f.err
}

func (f *fakeAnalyzer) Format(_ context.Context, req bsl.FormatRequest) (bsl.Result[bsl.Formatted], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.formats = append(f.formats, req)

	return f.format, f.err
}

type echoHandle struct {
	mu    sync.Mutex
	alive bool
}

func (h *echoHandle) Start(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.alive = true

	return nil
}

func (h *echoHandle) SendRequest(_ context.Context, line string) (string, error) {
	return "echo:" + line, nil
}

func (h *echoHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.alive = false

	return nil
}

func (h *echoHandle) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.alive
}

type fixture struct {
	d         *Dispatcher
	analyzer  *fakeAnalyzer
	pool      *session.Pool
	container string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	container := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(container, "demo", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(container, "demo", "src", "Module.bsl"), []byte("Procedure A()\nEndProcedure\n"), 0o600))

	pool := session.NewPool(log, session.Config{
		MaxSize:  2,
		Launcher: func(string) session.Handle { return &echoHandle{} },
	})
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	analyzer := &fakeAnalyzer{}

	return &fixture{
		d: NewDispatcher(log, Deps{
			Analyzer: analyzer,
			Sessions: pool,
			Paths:    pathmap.NewMapper(log, hostRoot, container),
			Version:  "test",
		}),
		analyzer:  analyzer,
		pool:      pool,
		container: container,
	}
}

func (f *fixture) call(t *testing.T, method string, params any) *Response {
	t.Helper()

	raw, err := json.Marshal(params)
	require.NoError(t, err)

	return f.d.Handle(context.Background(), &Request{JSONRPC: Version, ID: json.RawMessage(`1`), Method: method, Params: raw})
}

func requireCode(t *testing.T, resp *Response, code int) {
	t.Helper()

	require.NotNil(t, resp)
	require.NotNil(t, resp.Error, "expected error %d, got result %v", code, resp.Result)
	require.Equal(t, code, resp.Error.Code, resp.Error.Message)
}

func TestHandle_UnknownMethod(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "bogus", nil)
	requireCode(t, resp, CodeMethodNotFound)
	require.Equal(t, http.StatusNotFound, StatusFor(resp))
	require.JSONEq(t, `1`, string(resp.ID))
}

func TestHandle_InvalidRequest(t *testing.T) {
	f := newFixture(t)

	requireCode(t, f.d.Handle(context.Background(), &Request{ID: json.RawMessage(`2`)}), CodeInvalidRequest)
	requireCode(t, f.d.Handle(context.Background(), &Request{JSONRPC: "1.0", Method: "ping"}), CodeInvalidRequest)
}

func TestHandle_ParamsMustBeObject(t *testing.T) {
	f := newFixture(t)

	resp := f.d.Handle(context.Background(), &Request{Method: MethodSessionList, Params: json.RawMessage(`[1,2]`)})
	requireCode(t, resp, CodeInvalidParams)
}

func TestHandle_NotificationHasNoResponse(t *testing.T) {
	f := newFixture(t)

	require.Nil(t, f.d.Handle(context.Background(), &Request{Method: "notifications/initialized"}))
}

func TestHandle_Ping(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, MethodPing, nil)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, string(data))
}

func TestSessionStatus_UnknownID(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, MethodSessionStatus, map[string]any{"sessionId": "never-created"})
	requireCode(t, resp, CodeSessionNotFound)
	require.Equal(t, http.StatusNotFound, StatusFor(resp))
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, MethodSessionStart, map[string]any{"projectPath": hostRoot + "/demo"})
	require.Nil(t, resp.Error)

	started := resp.Result.(SessionStartResult)
	require.NotEmpty(t, started.SessionID)
	require.Equal(t, filepath.ToSlash(filepath.Join(f.container, "demo")), started.Project)

	resp = f.call(t, MethodSessionStatus, map[string]any{"sessionId": started.SessionID})
	require.Nil(t, resp.Error)
	require.Equal(t, session.StatusRunning, resp.Result.(SessionStatusResult).Status)

	resp = f.call(t, MethodSessionSend, map[string]any{"sessionId": started.SessionID, "payload": map[string]any{"a": 1}})
	require.Nil(t, resp.Error)
	require.Equal(t, `echo:{"a":1}`, resp.Result.(SessionSendResult).Response)

	resp = f.call(t, MethodSessionList, nil)
	require.Nil(t, resp.Error)

	list := resp.Result.([]SessionInfo)
	require.Len(t, list, 1)
	require.Equal(t, started.SessionID, list[0].SessionID)

	resp = f.call(t, MethodSessionStop, map[string]any{"sessionId": started.SessionID})
	require.True(t, resp.Result.(SessionStopResult).Stopped)

	resp = f.call(t, MethodSessionStop, map[string]any{"sessionId": started.SessionID})
	require.False(t, resp.Result.(SessionStopResult).Stopped)

	resp = f.call(t, MethodSessionList, nil)
	require.Empty(t, resp.Result.([]SessionInfo))
}

func TestSessionStart_Errors(t *testing.T) {
	f := newFixture(t)

	requireCode(t, f.call(t, MethodSessionStart, nil), CodeInvalidParams)
	requireCode(t, f.call(t, MethodSessionStart, map[string]any{"projectPath": "/etc"}), CodePathMapping)
	requireCode(t, f.call(t, MethodSessionStart, map[string]any{"projectPath": hostRoot + "/missing"}), CodeInvalidParams)
	requireCode(t, f.call(t, MethodSessionStart, map[string]any{"projectPath": 42}), CodeInvalidParams)
	require.Zero(t, f.pool.Len())
}

func TestAnalyze_Success(t *testing.T) {
	f := newFixture(t)
	f.analyzer.analysis = bsl.Succeeded(report.Analysis{
		Summary: report.Summary{Errors: 1, Total: 1},
		Diagnostics: []report.Diagnostic{
			{File: "Module.bsl", Line: 1, Severity: "Error", Code: "ParseError", Message: "broken"},
		},
	})

	resp := f.call(t, MethodAnalyze, map[string]any{
		"srcDir":    hostRoot + "/demo/src",
		"reporters": []string{"json", "console"},
		"language":  "en",
	})
	require.Nil(t, resp.Error)

	result := resp.Result.(*AnalyzeResult)
	require.Equal(t, 1, result.Summary.Errors)
	require.Len(t, result.Diagnostics, 1)

	require.Len(t, f.analyzer.analyzed, 1)
	req := f.analyzer.analyzed[0]
	require.Equal(t, filepath.ToSlash(filepath.Join(f.container, "demo", "src")), req.SrcDir)
	require.Equal(t, []string{"json", "console"}, req.Reporters)
	require.Equal(t, "en", req.Language)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	body := wire["result"].(map[string]any)
	require.Contains(t, body, "summary")
	require.Contains(t, body, "diagnostics")
	require.Contains(t, body, "sourcePath")
}

func TestAnalyze_ToolFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.analysis = bsl.Failed[report.Analysis]("OutOfMemoryError")

	resp := f.call(t, MethodAnalyze, map[string]any{"sourcePath": hostRoot + "/demo"})
	requireCode(t, resp, CodeExecutionFailed)
	require.Equal(t, http.StatusInternalServerError, StatusFor(resp))
	require.Equal(t, "OutOfMemoryError", resp.Error.Data.(map[string]any)["output"])
}

func TestAnalyze_ParamErrors(t *testing.T) {
	f := newFixture(t)

	requireCode(t, f.call(t, MethodAnalyze, map[string]any{}), CodeInvalidParams)
	requireCode(t, f.call(t, MethodAnalyze, map[string]any{"sourcePath": hostRoot + "/demo", "reporters": 5}), CodeInvalidParams)
	requireCode(t, f.call(t, MethodAnalyze, map[string]any{"sourcePath": `C:\Windows`}), CodePathMapping)
	require.Empty(t, f.analyzer.analyzed)
}

func TestFormat_DefaultsInPlace(t *testing.T) {
	f := newFixture(t)
	f.analyzer.format = bsl.Succeeded(bsl.Formatted{Format: report.Format{Formatted: true, FilesChanged: 1}, InPlace: true})

	resp := f.call(t, MethodFormat, map[string]any{"src": hostRoot + "/demo/src/Module.bsl"})
	require.Nil(t, resp.Error)
	require.True(t, f.analyzer.formats[0].InPlace)

	result := resp.Result.(*FormatResult)
	require.Equal(t, 1, result.FilesChanged)

	resp = f.call(t, MethodFormat, map[string]any{"sourcePath": hostRoot + "/demo/src/Module.bsl", "inPlace": false})
	require.Nil(t, resp.Error)
	require.False(t, f.analyzer.formats[1].InPlace)

	requireCode(t, f.call(t, MethodFormat, map[string]any{"sourcePath": hostRoot + "/demo", "inPlace": "yes"}), CodeInvalidParams)
}

func TestPathInfo(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, MethodPathInfo, map[string]any{"path": hostRoot + "/demo/src/Module.bsl"})
	require.Nil(t, resp.Error)

	info := resp.Result.(pathmap.Info)
	require.Equal(t, pathmap.TypeBSLFile, info.Type)
	require.True(t, info.Exists)
}

func TestHandle_CancelledByNotification(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})

	f.d.Register("slow", func(ctx context.Context, _ Params) (any, error) {
		close(started)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})

	done := make(chan *Response, 1)

	go func() {
		done <- f.d.Handle(context.Background(), &Request{ID: json.RawMessage(`"req-7"`), Method: "slow"})
	}()

	<-started
	require.Equal(t, 1, f.d.InFlight())

	require.Nil(t, f.d.Handle(context.Background(), &Request{
		Method: "notifications/cancelled",
		Params: json.RawMessage(`{"requestId": "req-7", "reason": "user"}`),
	}))

	select {
	case resp := <-done:
		requireCode(t, resp, CodeInternalError)
		require.Equal(t, map[string]any{"cancelled": true}, resp.Error.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("request was not cancelled")
	}

	require.Zero(t, f.d.InFlight())
	require.False(t, f.d.CancelRequest(`"req-7"`))
}

func TestCall_RecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.d.Register("explode", func(context.Context, Params) (any, error) {
		panic("kaboom")
	})

	resp := f.call(t, "explode", nil)
	requireCode(t, resp, CodeInternalError)
	require.Contains(t, resp.Error.Message, "kaboom")
}

func TestMethods(t *testing.T) {
	f := newFixture(t)

	require.Subset(t, f.d.Methods(), []string{
		MethodAnalyze, MethodFormat, MethodSessionStart, MethodSessionStatus,
		MethodSessionStop, MethodSessionList, MethodSessionSend, MethodPathInfo,
		MethodInitialize, MethodToolsList, MethodToolsCall, MethodPing,
	})
}
