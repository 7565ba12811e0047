package config

import (
	"fmt"
	"strings"
)

// TransportMode selects how requests reach the dispatcher.
type TransportMode string

const (
	// TransportStdio reads one JSON envelope per line from stdin.
	TransportStdio TransportMode = "stdio"
	// TransportHTTP serves the envelope, REST and streaming endpoints over HTTP.
	TransportHTTP TransportMode = "http"
	// TransportSSE is TransportHTTP with Server-Sent-Events as the advertised stream.
	TransportSSE TransportMode = "sse"
	// TransportNDJSON is TransportHTTP with newline-delimited JSON as the advertised stream.
	TransportNDJSON TransportMode = "ndjson"
)

// ParseTransportMode normalizes and validates a transport name.
func ParseTransportMode(s string) (TransportMode, error) {
	switch mode := TransportMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case TransportStdio, TransportHTTP, TransportSSE, TransportNDJSON:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown transport %q: want stdio, http, sse or ndjson", s)
	}
}

// IsHTTP reports whether the mode is served by the HTTP server.
func (m TransportMode) IsHTTP() bool {
	return m == TransportHTTP || m == TransportSSE || m == TransportNDJSON
}
