// Package protocol routes JSON-RPC style requests to the bridge's operations.
//
// A Dispatcher owns the operation catalogue and is shared by every
// transport. Requests carry a method name, an opaque id and a params object;
// every request that is not a notification yields exactly one Response.
//
// Failures are mapped to one wire-level code each (see ErrorFor) and, for
// HTTP transports, to a status code (see HTTPStatus).
//
// Example usage:
//
//	d := protocol.NewDispatcher(log, protocol.Deps{
//		Analyzer: service,
//		Sessions: pool,
//		Paths:    mapper,
//	})
//
//	resp := d.Handle(ctx, &protocol.Request{Method: "session.list"})
//
// For streaming transports, Decompose splits an analysis outcome into the
// ordered event sequence start, diagnostic..., summary, complete.
package protocol
