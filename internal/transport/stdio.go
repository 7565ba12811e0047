package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

const (
	// maxLineSize bounds a single inbound request line.
	maxLineSize = 10 * 1024 * 1024

	// DefaultStdioConcurrency bounds requests served at once on stdio.
	DefaultStdioConcurrency = 8
)

// Handler serves one envelope. A nil response means nothing is written.
type Handler interface {
	Handle(ctx context.Context, req *protocol.Request) *protocol.Response
}

// Stdio serves newline-delimited envelopes from in and writes responses to out.
//
// Requests are dispatched concurrently, so responses may be written in a
// different order than their requests arrived; clients correlate by id.
type Stdio struct {
	log     *slog.Logger
	handler Handler
	in      io.Reader
	out     io.Writer
	limit   int

	writeMu sync.Mutex
}

// NewStdio creates a stdio transport. A limit below 1 uses
// DefaultStdioConcurrency.
func NewStdio(log *slog.Logger, handler Handler, in io.Reader, out io.Writer, limit int) *Stdio {
	if limit < 1 {
		limit = DefaultStdioConcurrency
	}

	return &Stdio{
		log:     log.With("component", "stdio_transport"),
		handler: handler,
		in:      in,
		out:     out,
		limit:   limit,
	}
}

// Serve reads requests until EOF or until ctx is done, then waits for the
// requests in flight to finish.
func (s *Stdio) Serve(ctx context.Context) error {
	lines, readErrs := s.readLines(ctx)

	var g errgroup.Group

	g.SetLimit(s.limit)

	s.log.Info("Stdio transport started")

	var served int

	defer func() {
		_ = g.Wait()
		s.log.Info("Stdio transport stopped", "requests", served)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				_ = g.Wait()

				select {
				case err := <-readErrs:
					return err
				default:
					return nil
				}
			}

			served++

			g.Go(func() error {
				s.serveLine(ctx, line)

				return nil
			})

		case <-ctx.Done():
			s.log.Debug("Context done, draining in-flight requests")

			return nil
		}
	}
}

// readLines scans in on its own goroutine. The goroutine ends at EOF, on a
// read error, or once ctx is done and the next line arrives.
func (s *Stdio) readLines(ctx context.Context) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			select {
			case lines <- bytes.Clone(line):
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			s.log.Error("Scanner error while reading stdin", "error", err)

			errs <- fmt.Errorf("read stdin: %w", err)
		}
	}()

	return lines, errs
}

func (s *Stdio) serveLine(ctx context.Context, line []byte) {
	req, resp := protocol.ParseRequest(line)
	if resp == nil {
		resp = s.handler.Handle(ctx, req)
	} else {
		s.log.Warn("Malformed request line", "error", resp.Error.Message)
	}

	if resp == nil {
		return
	}

	if err := s.write(resp); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

// write emits one response line. Writes are serialized so lines never interleave.
func (s *Stdio) write(resp *protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(protocol.NewError(resp.ID, &protocol.ErrorObject{
			Code:    protocol.CodeInternalError,
			Message: "encode response: " + err.Error(),
		}))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}

	return nil
}
