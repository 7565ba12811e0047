// Package bslmcp bridges MCP clients to the BSL Language Server.
//
// A Server wires one-shot analysis and formatting runs, a bounded pool of
// persistent language server sessions and host-to-container path
// translation behind a single operation catalogue, and serves that
// catalogue over one of the supported transports.
//
// # Basic Usage
//
//	opts := bslmcp.DefaultOptions()
//	opts.JarPath = "/opt/bsl/bsl-language-server.jar"
//	opts.Transport = bslmcp.TransportStdio
//
//	srv, err := bslmcp.New(ctx,
//	    bslmcp.WithOptions(opts),
//	    bslmcp.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transports
//
// TransportStdio reads one JSON envelope per line from stdin and writes one
// response per line to stdout. TransportHTTP, TransportSSE and
// TransportNDJSON serve the envelope endpoint (/mcp), the REST routes under
// /api, the analysis streams under /api/stream/analyze and the /status
// endpoints.
//
// # Direct Calls
//
// Call invokes a catalogue method without a transport, which is how the
// command line analyze and format subcommands work:
//
//	result, err := srv.Call(ctx, "analyze", map[string]any{
//	    "sourcePath": "/home/dev/projects/demo/src",
//	})
//
// # Error Handling
//
// Errors returned by Call are bridge errors; use errors.As with the
// re-exported types (SessionNotFoundError, InvalidParamsError, ...) to
// inspect them, or ErrorCode to obtain the wire-level code.
package bslmcp
