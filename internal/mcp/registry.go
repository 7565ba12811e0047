package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// ProtocolVersion is the MCP revision announced in initialize responses.
const ProtocolVersion = "2024-11-05"

// Registry keeps the tools exposed over MCP.
//
// The official SDK's Server is bound to its own transports. The bridge owns
// its transports, so the registry keeps the tool table and dispatches calls
// itself.
type Registry struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewRegistry creates an empty registry announcing itself as name/version.
func NewRegistry(name, version string) *Registry {
	return &Registry{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool. Registering a name twice replaces the handler
// and keeps the original listing position.
func (r *Registry) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}

	r.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Name returns the server name.
func (r *Registry) Name() string { return r.name }

// Version returns the server version.
func (r *Registry) Version() string { return r.version }

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Initialize returns the result of the MCP initialize handshake.
func (r *Registry) Initialize() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    r.name,
			"version": r.version,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
	}
}

// ListTools returns tool metadata in registration order.
func (r *Registry) ListTools() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]map[string]any, 0, len(r.order))

	for _, name := range r.order {
		t := r.tools[name].tool
		entry := map[string]any{
			"name":        t.Name,
			"description": t.Description,
		}

		if schema, ok := toMap(t.InputSchema); ok {
			entry["inputSchema"] = schema
		}

		if t.Annotations != nil {
			if annotations, ok := toMap(t.Annotations); ok {
				entry["annotations"] = annotations
			}
		}

		result = append(result, entry)
	}

	return result
}

// CallTool runs the named tool. Handler failures are reported inside the
// result with isError set; only an unknown tool is an error.
func (r *Registry) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	r.mu.RLock()
	t, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &errors.InvalidParamsError{Param: "name", Reason: "unknown tool " + name}
	}

	if input == nil {
		input = map[string]any{}
	}

	arguments, err := json.Marshal(input)
	if err != nil {
		return nil, &errors.InvalidParamsError{Param: "arguments", Reason: err.Error()}
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: arguments,
		},
	})
	if err != nil {
		//nolint:nilerr // tool failures travel inside the result
		return resultToMap(ErrorResult("Tool execution failed: " + err.Error())), nil
	}

	return resultToMap(result), nil
}

// resultToMap converts a CallToolResult to its wire shape.
func resultToMap(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{"type": "text", "text": v.Text})
		case *mcp.ResourceLink:
			content = append(content, map[string]any{"type": "resource_link", "uri": v.URI, "name": v.Name})
		case *mcp.EmbeddedResource:
			if v.Resource != nil {
				content = append(content, map[string]any{
					"type": "resource",
					"resource": map[string]any{
						"uri":      v.Resource.URI,
						"mimeType": v.Resource.MIMEType,
						"text":     v.Resource.Text,
					},
				})
			}
		}
	}

	out := map[string]any{"content": content}

	if result.StructuredContent != nil {
		out["structuredContent"] = result.StructuredContent
	}

	if result.IsError {
		out["isError"] = true
	}

	return out
}

func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}

	var m map[string]any
	if json.Unmarshal(data, &m) != nil || m == nil {
		return nil, false
	}

	return m, true
}

// NewTool creates an mcp.Tool.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ReadOnly marks a tool as free of side effects.
func ReadOnly(tool *mcp.Tool) *mcp.Tool {
	tool.Annotations = &mcp.ToolAnnotations{ReadOnlyHint: true}

	return tool
}

// TextResult creates a result with one text block.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// StructuredResult creates a result carrying both a text rendering and the
// machine-readable value.
func StructuredResult(text string, value any) *mcp.CallToolResult {
	result := TextResult(text)
	result.StructuredContent = value

	return result
}

// ErrorResult creates a result flagged as a tool error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// ParseArguments unmarshals tool call arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}
