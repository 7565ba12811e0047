package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wagiedev/bsl-mcp-server/internal/bsl"
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
	"github.com/wagiedev/bsl-mcp-server/internal/report"
	"github.com/wagiedev/bsl-mcp-server/internal/session"
)

// Catalogue method names.
const (
	MethodAnalyze       = "analyze"
	MethodFormat        = "format"
	MethodSessionStart  = "session.start"
	MethodSessionStatus = "session.status"
	MethodSessionStop   = "session.stop"
	MethodSessionList   = "session.list"
	MethodSessionSend   = "session.send"
	MethodPathInfo      = "path.info"

	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
	MethodPing       = "ping"
)

// AnalyzeResult is the result of analyze.
type AnalyzeResult struct {
	SourcePath string `json:"sourcePath"`
	report.Analysis
}

// FormatResult is the result of format.
type FormatResult struct {
	SourcePath string `json:"sourcePath"`
	bsl.Formatted
}

// SessionStartResult is the result of session.start.
type SessionStartResult struct {
	SessionID string `json:"sessionId"`
	Project   string `json:"project"`
}

// SessionStatusResult is the result of session.status.
type SessionStatusResult struct {
	SessionID     string `json:"sessionId"`
	Project       string `json:"project"`
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// SessionStopResult is the result of session.stop.
type SessionStopResult struct {
	SessionID string `json:"sessionId"`
	Stopped   bool   `json:"stopped"`
}

// SessionSendResult is the result of session.send.
type SessionSendResult struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
}

// SessionInfo is one entry of session.list.
type SessionInfo struct {
	SessionID     string    `json:"sessionId"`
	Project       string    `json:"project"`
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	CreatedAt     time.Time `json:"createdAt"`
	LastAccess    time.Time `json:"lastAccess"`
}

func newSessionInfo(info session.Info) SessionInfo {
	return SessionInfo{
		SessionID:     info.ID,
		Project:       info.ProjectPath,
		Status:        info.Status,
		UptimeSeconds: int64(info.Uptime / time.Second),
		CreatedAt:     info.CreatedAt,
		LastAccess:    info.LastAccess,
	}
}

func (d *Dispatcher) registerCatalogue() {
	d.Register(MethodAnalyze, func(ctx context.Context, p Params) (any, error) { return d.Analyze(ctx, p) })
	d.Register(MethodFormat, func(ctx context.Context, p Params) (any, error) { return d.Format(ctx, p) })
	d.Register(MethodSessionStart, d.sessionStart)
	d.Register(MethodSessionStatus, d.sessionStatus)
	d.Register(MethodSessionStop, d.sessionStop)
	d.Register(MethodSessionList, d.sessionList)
	d.Register(MethodSessionSend, d.sessionSend)
	d.Register(MethodPathInfo, d.pathInfo)

	d.Register(MethodInitialize, func(context.Context, Params) (any, error) { return d.tools.Initialize(), nil })
	d.Register(MethodPing, func(context.Context, Params) (any, error) { return struct{}{}, nil })
	d.Register(MethodToolsList, func(context.Context, Params) (any, error) {
		return map[string]any{"tools": d.tools.ListTools()}, nil
	})
	d.Register(MethodToolsCall, d.toolsCall)
}

// resolve maps a client path into the container and checks it exists.
func (d *Dispatcher) resolve(param, hostPath string) (string, error) {
	containerPath, err := d.paths.ToContainer(hostPath)
	if err != nil {
		return "", err
	}

	if !d.paths.Validate(containerPath) {
		return "", &errors.InvalidParamsError{
			Param:  param,
			Reason: fmt.Sprintf("path %q does not exist or is not accessible", hostPath),
		}
	}

	return containerPath, nil
}

// Analyze serves the analyze method. Streaming transports call it directly
// and decompose the outcome.
func (d *Dispatcher) Analyze(ctx context.Context, p Params) (*AnalyzeResult, error) {
	source, err := p.RequiredString("sourcePath", "srcDir", "src")
	if err != nil {
		return nil, err
	}

	reporters, err := p.Strings("reporters")
	if err != nil {
		return nil, err
	}

	language, err := p.String("language")
	if err != nil {
		return nil, err
	}

	containerPath, err := d.resolve("sourcePath", source)
	if err != nil {
		return nil, err
	}

	res, err := d.analyzer.Analyze(ctx, bsl.AnalyzeRequest{
		SrcDir:    containerPath,
		Reporters: reporters,
		Language:  language,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", source, err)
	}

	if !res.OK() {
		return nil, &errors.ExecutionFailedError{Op: MethodAnalyze, ExitCode: res.ExitCode, Output: res.Failure()}
	}

	return &AnalyzeResult{SourcePath: containerPath, Analysis: res.Value()}, nil
}

// Format serves the format method.
func (d *Dispatcher) Format(ctx context.Context, p Params) (*FormatResult, error) {
	source, err := p.RequiredString("sourcePath", "src", "srcDir")
	if err != nil {
		return nil, err
	}

	inPlace, err := p.Bool("inPlace", true)
	if err != nil {
		return nil, err
	}

	containerPath, err := d.resolve("sourcePath", source)
	if err != nil {
		return nil, err
	}

	res, err := d.analyzer.Format(ctx, bsl.FormatRequest{Src: containerPath, InPlace: inPlace})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", source, err)
	}

	if !res.OK() {
		return nil, &errors.ExecutionFailedError{Op: MethodFormat, ExitCode: res.ExitCode, Output: res.Failure()}
	}

	return &FormatResult{SourcePath: containerPath, Formatted: res.Value()}, nil
}

func (d *Dispatcher) sessionStart(ctx context.Context, p Params) (any, error) {
	project, err := p.RequiredString("projectPath", "project")
	if err != nil {
		return nil, err
	}

	containerPath, err := d.resolve("projectPath", project)
	if err != nil {
		return nil, err
	}

	s, err := d.sessions.Create(ctx, containerPath)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", project, err)
	}

	return SessionStartResult{SessionID: s.ID, Project: s.ProjectPath}, nil
}

func (d *Dispatcher) lookup(p Params) (*session.Session, error) {
	id, err := p.RequiredString("sessionId")
	if err != nil {
		return nil, err
	}

	s, ok := d.sessions.Get(id)
	if !ok {
		return nil, &errors.SessionNotFoundError{ID: id}
	}

	return s, nil
}

func (d *Dispatcher) sessionStatus(_ context.Context, p Params) (any, error) {
	s, err := d.lookup(p)
	if err != nil {
		return nil, err
	}

	info := s.Info()

	return SessionStatusResult{
		SessionID:     info.ID,
		Project:       info.ProjectPath,
		Status:        info.Status,
		UptimeSeconds: int64(info.Uptime / time.Second),
	}, nil
}

func (d *Dispatcher) sessionStop(_ context.Context, p Params) (any, error) {
	id, err := p.RequiredString("sessionId")
	if err != nil {
		return nil, err
	}

	return SessionStopResult{SessionID: id, Stopped: d.sessions.Stop(id)}, nil
}

func (d *Dispatcher) sessionList(context.Context, Params) (any, error) {
	infos := d.sessions.List()

	out := make([]SessionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, newSessionInfo(info))
	}

	return out, nil
}

func (d *Dispatcher) sessionSend(ctx context.Context, p Params) (any, error) {
	s, err := d.lookup(p)
	if err != nil {
		return nil, err
	}

	payload, ok := p["payload"]
	if !ok || payload == nil {
		return nil, &errors.InvalidParamsError{Param: "payload", Reason: "is required"}
	}

	line, isString := payload.(string)
	if !isString {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &errors.InvalidParamsError{Param: "payload", Reason: err.Error()}
		}

		line = string(encoded)
	}

	response, err := s.SendRequest(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("send to session %s: %w", s.ID, err)
	}

	return SessionSendResult{SessionID: s.ID, Response: response}, nil
}

func (d *Dispatcher) pathInfo(_ context.Context, p Params) (any, error) {
	hostPath, err := p.RequiredString("path")
	if err != nil {
		return nil, err
	}

	return d.paths.Inspect(hostPath)
}

func (d *Dispatcher) toolsCall(ctx context.Context, p Params) (any, error) {
	name, err := p.RequiredString("name")
	if err != nil {
		return nil, err
	}

	arguments, err := p.Object("arguments")
	if err != nil {
		return nil, err
	}

	return d.tools.CallTool(ctx, name, arguments)
}
