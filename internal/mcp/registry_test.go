package mcp

import (
	"context"
	stderrors "errors"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

func echoHandler(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args, err := ParseArguments(req)
	if err != nil {
		return nil, err
	}

	text, _ := args["text"].(string)

	return TextResult("echo: " + text), nil
}

func TestRegistryInitialize(t *testing.T) {
	r := NewRegistry("bsl-mcp-server", "1.2.3")

	got := r.Initialize()
	require.Equal(t, ProtocolVersion, got["protocolVersion"])
	require.Equal(t, map[string]any{"name": "bsl-mcp-server", "version": "1.2.3"}, got["serverInfo"])
	require.Contains(t, got["capabilities"], "tools")
}

func TestRegistryListToolsKeepsOrder(t *testing.T) {
	r := NewRegistry("demo", "1.0.0")
	schema := ObjectSchema(
		Property{Name: "text", Schema: String("text to echo"), Required: true},
		Property{Name: "loud", Schema: Boolean("shout")},
	)

	r.AddTool(NewTool("zeta", "last letter", schema), echoHandler)
	r.AddTool(ReadOnly(NewTool("alpha", "first letter", nil)), echoHandler)
	r.AddTool(NewTool("zeta", "replaced", schema), echoHandler)

	tools := r.ListTools()
	require.Len(t, tools, 2)
	require.Equal(t, 2, r.Len())
	require.Equal(t, "zeta", tools[0]["name"])
	require.Equal(t, "replaced", tools[0]["description"])
	require.Equal(t, "alpha", tools[1]["name"])

	inputSchema, ok := tools[0]["inputSchema"].(map[string]any)
	require.True(t, ok, "expected inputSchema to be serialized as a map")
	require.Equal(t, "object", inputSchema["type"])
	require.Equal(t, []any{"text"}, inputSchema["required"])
	require.NotContains(t, tools[1], "inputSchema")

	annotations, ok := tools[1]["annotations"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, annotations["readOnlyHint"])
}

func TestRegistryCallTool(t *testing.T) {
	r := NewRegistry("demo", "1.0.0")
	r.AddTool(NewTool("echo", "echoes text", nil), echoHandler)

	result, err := r.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"content": []map[string]any{{"type": "text", "text": "echo: hello"}},
	}, result)
}

func TestRegistryCallTool_Unknown(t *testing.T) {
	r := NewRegistry("demo", "1.0.0")

	_, err := r.CallTool(context.Background(), "missing", nil)

	invalid, ok := stderrors.AsType[*errors.InvalidParamsError](err)
	require.True(t, ok)
	require.Equal(t, "name", invalid.Param)
}

func TestRegistryCallTool_HandlerError(t *testing.T) {
	r := NewRegistry("demo", "1.0.0")
	r.AddTool(NewTool("fails", "always fails", nil),
		func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, stderrors.New("boom")
		},
	)

	result, err := r.CallTool(context.Background(), "fails", nil)
	require.NoError(t, err)
	require.Equal(t, true, result["isError"])

	content := result["content"].([]map[string]any)
	require.Contains(t, content[0]["text"], "boom")
}

func TestResultToMap(t *testing.T) {
	t.Run("nil result returns empty content", func(t *testing.T) {
		require.Equal(t, map[string]any{"content": []map[string]any{}}, resultToMap(nil))
	})

	t.Run("structured content and error flag", func(t *testing.T) {
		value := map[string]any{"errors": 1}
		result := StructuredResult("1 error", value)
		result.IsError = true

		got := resultToMap(result)
		require.Equal(t, value, got["structuredContent"])
		require.Equal(t, true, got["isError"])
	})

	t.Run("resources are converted", func(t *testing.T) {
		result := &mcpgo.CallToolResult{
			Content: []mcpgo.Content{
				&mcpgo.ResourceLink{URI: "file:///a.bsl", Name: "a.bsl"},
				&mcpgo.EmbeddedResource{Resource: &mcpgo.ResourceContents{URI: "file:///b.bsl", MIMEType: "text/plain", Text: "body"}},
			},
		}

		content := resultToMap(result)["content"].([]map[string]any)
		require.Len(t, content, 2)
		require.Equal(t, "resource_link", content[0]["type"])
		require.Equal(t, "resource", content[1]["type"])
	})
}

func TestObjectSchema(t *testing.T) {
	schema := ObjectSchema(
		Property{Name: "sourcePath", Schema: String("path"), Required: true},
		Property{Name: "reporters", Schema: StringArray("reporters", "json", "console")},
	)

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"sourcePath"}, schema.Required)
	require.Equal(t, "array", schema.Properties["reporters"].Type)
	require.Equal(t, []any{"json", "console"}, schema.Properties["reporters"].Items.Enum)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte("null")}})
	require.NoError(t, err)
	require.NotNil(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"n":3}`)}})
	require.NoError(t, err)
	require.InDelta(t, 3.0, args["n"], 0)

	_, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"n":`)}})
	require.ErrorContains(t, err, "unmarshal arguments")
}
