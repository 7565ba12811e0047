package bslmcp

import (
	"context"
	"fmt"
)

// WithServer manages server lifecycle with automatic cleanup.
//
// It creates a Server with the provided options, executes the callback and
// closes the server when done. If Close fails, a warning is logged but does
// not override the callback's error.
//
// Example usage:
//
//	err := bslmcp.WithServer(ctx, func(s *bslmcp.Server) error {
//	    result, err := s.Call(ctx, "analyze", map[string]any{"sourcePath": dir})
//	    if err != nil {
//	        return err
//	    }
//	    // use result...
//	    return nil
//	},
//	    bslmcp.WithOptions(opts),
//	)
func WithServer(ctx context.Context, fn func(*Server) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	srv, err := New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			srv.log.Warn("Failed to close server", "error", closeErr)
		}
	}()

	return fn(srv)
}
