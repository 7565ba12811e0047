package protocol

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/bsl-mcp-server/internal/mcp"
	"github.com/wagiedev/bsl-mcp-server/internal/pathmap"
)

// MCP tool names.
const (
	ToolAnalyze       = "bslcheck_analyze"
	ToolFormat        = "bslcheck_format"
	ToolSessionStart  = "bslcheck_session_start"
	ToolSessionStatus = "bslcheck_session_status"
	ToolSessionStop   = "bslcheck_session_stop"
	ToolSessionList   = "bslcheck_session_list"
	ToolPathInfo      = "bslcheck_path_info"
)

// maxListedDiagnostics caps the diagnostics rendered into tool text.
const maxListedDiagnostics = 10

var (
	sourcePathProp = mcp.Property{
		Name:     "sourcePath",
		Schema:   mcp.String("Absolute host path to a BSL/OneScript file or directory"),
		Required: true,
	}
	sessionIDProp = mcp.Property{
		Name:     "sessionId",
		Schema:   mcp.String("Session id returned by bslcheck_session_start"),
		Required: true,
	}
)

func (d *Dispatcher) registerTools() {
	d.addTool(
		mcp.ReadOnly(mcp.NewTool(ToolAnalyze, "Analyze 1C:Enterprise BSL or OneScript sources with BSL Language Server",
			mcp.ObjectSchema(
				sourcePathProp,
				mcp.Property{Name: "reporters", Schema: mcp.StringArray("Report formats, default json", "json", "console", "junit", "sarif", "generic")},
				mcp.Property{Name: "language", Schema: mcp.String("Diagnostic message language: ru or en, default ru")},
			),
		)),
		MethodAnalyze,
	)

	d.addTool(
		mcp.NewTool(ToolFormat, "Format 1C:Enterprise BSL or OneScript sources",
			mcp.ObjectSchema(
				sourcePathProp,
				mcp.Property{Name: "inPlace", Schema: mcp.Boolean("Rewrite the sources, default true")},
			),
		),
		MethodFormat,
	)

	d.addTool(
		mcp.NewTool(ToolSessionStart, "Start a persistent BSL Language Server session for a project",
			mcp.ObjectSchema(mcp.Property{
				Name:     "projectPath",
				Schema:   mcp.String("Absolute host path to the project root"),
				Required: true,
			}),
		),
		MethodSessionStart,
	)

	d.addTool(mcp.ReadOnly(mcp.NewTool(ToolSessionStatus, "Show the status of a session", mcp.ObjectSchema(sessionIDProp))), MethodSessionStatus)
	d.addTool(mcp.NewTool(ToolSessionStop, "Stop a session", mcp.ObjectSchema(sessionIDProp)), MethodSessionStop)
	d.addTool(mcp.ReadOnly(mcp.NewTool(ToolSessionList, "List active sessions", mcp.ObjectSchema())), MethodSessionList)

	d.addTool(
		mcp.ReadOnly(mcp.NewTool(ToolPathInfo, "Translate a host path into the container and classify it",
			mcp.ObjectSchema(mcp.Property{Name: "path", Schema: mcp.String("Absolute host path"), Required: true}),
		)),
		MethodPathInfo,
	)
}

// addTool exposes method as an MCP tool. Failures become isError results.
func (d *Dispatcher) addTool(tool *mcpsdk.Tool, method string) {
	d.tools.AddTool(tool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args, err := mcp.ParseArguments(req)
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}

		value, err := d.Call(ctx, method, Params(args))
		if err != nil {
			obj := ErrorFor(err)

			return mcp.ErrorResult(fmt.Sprintf("%s failed (%d): %s", method, obj.Code, obj.Message)), nil
		}

		return mcp.StructuredResult(render(value), structured(value)), nil
	})
}

// structured wraps non-object values so structuredContent is always an object.
func structured(value any) any {
	if list, ok := value.([]SessionInfo); ok {
		return map[string]any{"sessions": list}
	}

	return value
}

func render(value any) string {
	var b strings.Builder

	switch v := value.(type) {
	case *AnalyzeResult:
		s := v.Summary
		fmt.Fprintf(&b, "Analysis of %s\n", v.SourcePath)
		fmt.Fprintf(&b, "Errors: %d, warnings: %d, info: %d, total: %d\n", s.Errors, s.Warnings, s.Info, s.Total)

		for i, diag := range v.Diagnostics {
			if i == maxListedDiagnostics {
				fmt.Fprintf(&b, "... and %d more\n", len(v.Diagnostics)-maxListedDiagnostics)

				break
			}

			fmt.Fprintf(&b, "%s:%d:%d [%s] %s: %s\n", diag.File, diag.Line+1, diag.Column+1, diag.Severity, diag.Code, diag.Message)
		}

		if len(v.Diagnostics) == 0 && v.RawOutput != "" {
			b.WriteString("\n" + v.RawOutput)
		}
	case *FormatResult:
		fmt.Fprintf(&b, "Formatted %s: %t, files changed: %d", v.SourcePath, v.Formatted.Formatted, v.FilesChanged)

		if v.Content != "" {
			b.WriteString("\n\n" + v.Content)
		}
	case SessionStartResult:
		fmt.Fprintf(&b, "Session %s started for %s", v.SessionID, v.Project)
	case SessionStatusResult:
		fmt.Fprintf(&b, "Session %s is %s, uptime %ds, project %s", v.SessionID, v.Status, v.UptimeSeconds, v.Project)
	case SessionStopResult:
		if v.Stopped {
			fmt.Fprintf(&b, "Session %s stopped", v.SessionID)
		} else {
			fmt.Fprintf(&b, "Session %s was not running", v.SessionID)
		}
	case []SessionInfo:
		if len(v) == 0 {
			b.WriteString("No active sessions")
		}

		for _, s := range v {
			fmt.Fprintf(&b, "%s  %s  %s  %ds\n", s.SessionID, s.Status, s.Project, s.UptimeSeconds)
		}
	case pathmap.Info:
		fmt.Fprintf(&b, "%s -> %s (%s, exists: %t)", v.HostPath, v.ContainerPath, v.Type, v.Exists)
	default:
		fmt.Fprintf(&b, "%v", v)
	}

	return strings.TrimRight(b.String(), "\n")
}
