package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

// setSSEHeaders sets the headers a Server-Sent-Events response needs.
func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// startAnalysis runs the analysis in the background and delivers its event
// sequence once it completes. Parameter errors arrive as an error event.
func (s *HTTPServer) startAnalysis(c *gin.Context) <-chan []protocol.Event {
	ch := make(chan []protocol.Event, 1)

	var (
		params protocol.Params
		err    error
	)

	if c.Request.Method == http.MethodGet {
		params = queryParams(c)
	} else {
		params, err = bodyParams(c)
	}

	ctx := c.Request.Context()

	go func() {
		defer close(ch)

		if err != nil {
			ch <- protocol.Decompose(nil, err)

			return
		}

		ch <- protocol.Decompose(s.dispatcher.Analyze(ctx, params))
	}()

	return ch
}

// handleSSE streams an analysis as Server-Sent-Events. Keepalive comments
// are written while the analysis runs.
func (s *HTTPServer) handleSSE(c *gin.Context) {
	setSSEHeaders(c)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	results := s.startAnalysis(c)
	ctx := c.Request.Context()

	keepalive := time.NewTicker(s.cfg.KeepAlive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("SSE client disconnected")

			return

		case events, ok := <-results:
			if !ok {
				return
			}

			for _, event := range events {
				if err := writeSSE(c.Writer, event); err != nil {
					s.log.Debug("SSE write failed", "error", err)

					return
				}

				c.Writer.Flush()
			}

			return

		case <-keepalive.C:
			if _, err := io.WriteString(c.Writer, ": keepalive\n\n"); err != nil {
				s.log.Debug("SSE keepalive failed", "error", err)

				return
			}

			c.Writer.Flush()
		}
	}
}

func writeSSE(w io.Writer, event protocol.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ulid.Make(), event.Type, data)

	return err
}

// handleNDJSON streams an analysis as newline-delimited JSON, one event
// object per line.
func (s *HTTPServer) handleNDJSON(c *gin.Context) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	results := s.startAnalysis(c)

	var events []protocol.Event

	select {
	case <-c.Request.Context().Done():
		s.log.Debug("NDJSON client disconnected")

		return
	case events = <-results:
	}

	enc := json.NewEncoder(c.Writer)

	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			s.log.Debug("NDJSON write failed", "error", err)

			return
		}

		c.Writer.Flush()
	}
}
