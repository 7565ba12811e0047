// Package transport exposes the protocol dispatcher over the wire.
//
// Stdio reads one JSON envelope per line and writes one response per line.
// HTTPServer serves the envelope endpoint, the REST routes, the SSE and
// NDJSON analysis streams and the status endpoints with gin.
package transport
