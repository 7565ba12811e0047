package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
	"github.com/wagiedev/bsl-mcp-server/internal/report"
)

func TestDecompose_Success(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		t.Run(fmt.Sprintf("%d diagnostics", n), func(t *testing.T) {
			result := &AnalyzeResult{SourcePath: "/workspaces/demo"}
			for i := range n {
				result.Diagnostics = append(result.Diagnostics, report.Diagnostic{Line: i, Message: fmt.Sprintf("d%d", i)})
			}

			result.Summary = report.Summary{Warnings: n, Total: n}
			before := len(result.Diagnostics)

			events := Decompose(result, nil)

			require.Len(t, events, n+3)
			require.Equal(t, EventStart, events[0].Type)
			require.Equal(t, map[string]any{"sourcePath": "/workspaces/demo"}, events[0].Data)

			for i := range n {
				require.Equal(t, EventDiagnostic, events[i+1].Type)
				require.Equal(t, result.Diagnostics[i], events[i+1].Data)
			}

			require.Equal(t, EventSummary, events[n+1].Type)
			require.Equal(t, result.Summary, events[n+1].Data)
			require.Equal(t, EventComplete, events[n+2].Type)
			require.Len(t, result.Diagnostics, before)
		})
	}
}

func TestDecompose_Failure(t *testing.T) {
	events := Decompose(nil, &errors.SessionNotFoundError{ID: "x"})

	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Type)
	require.Equal(t, CodeSessionNotFound, events[0].Data.(*ErrorObject).Code)

	events = Decompose(nil, nil)
	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Type)
}
