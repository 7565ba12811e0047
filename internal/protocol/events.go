package protocol

// Streaming event types.
const (
	EventStart      = "start"
	EventDiagnostic = "diagnostic"
	EventSummary    = "summary"
	EventComplete   = "complete"
	EventError      = "error"
)

// Event is one frame of a streamed analysis.
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

// Decompose splits an analysis outcome into its ordered event sequence:
// start, one diagnostic per diagnostic in result order, summary and
// complete. A failure yields a single error event. The result is not
// modified.
func Decompose(result *AnalyzeResult, err error) []Event {
	if err != nil || result == nil {
		obj := ErrorFor(err)
		if obj == nil {
			obj = &ErrorObject{Code: CodeInternalError, Message: "analysis produced no result"}
		}

		return []Event{{Type: EventError, Data: obj}}
	}

	events := make([]Event, 0, len(result.Diagnostics)+3)
	events = append(events, Event{Type: EventStart, Data: map[string]any{"sourcePath": result.SourcePath}})

	for _, diag := range result.Diagnostics {
		events = append(events, Event{Type: EventDiagnostic, Data: diag})
	}

	return append(events,
		Event{Type: EventSummary, Data: result.Summary},
		Event{Type: EventComplete, Data: map[string]any{"status": "success"}},
	)
}
