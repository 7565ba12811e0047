package bslmcp

import (
	"github.com/wagiedev/bsl-mcp-server/internal/errors"
	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

// Re-export error types from internal package

// PathMappingError indicates a host path could not be translated.
type PathMappingError = errors.PathMappingError

// ProcessStartError indicates the language server process failed to start.
type ProcessStartError = errors.ProcessStartError

// ProcessCommunicationError indicates an exchange with a process failed.
type ProcessCommunicationError = errors.ProcessCommunicationError

// SessionNotFoundError indicates no session is registered under the id.
type SessionNotFoundError = errors.SessionNotFoundError

// InvalidParamsError indicates a missing or ill-typed request parameter.
type InvalidParamsError = errors.InvalidParamsError

// JavaNotFoundError indicates no Java runtime could be located.
type JavaNotFoundError = errors.JavaNotFoundError

// JarNotFoundError indicates the language server jar is missing.
type JarNotFoundError = errors.JarNotFoundError

// ExecutionFailedError indicates the language server ran but reported failure.
type ExecutionFailedError = errors.ExecutionFailedError

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrMethodNotFound indicates the requested method is not in the catalogue.
	ErrMethodNotFound = errors.ErrMethodNotFound

	// ErrProcessClosed indicates a process handle was already closed.
	ErrProcessClosed = errors.ErrProcessClosed

	// ErrProcessTimeout indicates a process did not finish within its deadline.
	ErrProcessTimeout = errors.ErrProcessTimeout

	// ErrPoolClosed indicates the session pool has been shut down.
	ErrPoolClosed = errors.ErrPoolClosed

	// ErrMappingDisabled indicates no host root is configured.
	ErrMappingDisabled = errors.ErrMappingDisabled

	// ErrOutsideRoot indicates a path does not live under the mapped root.
	ErrOutsideRoot = errors.ErrOutsideRoot
)

// ErrorCode returns the wire-level error code for err, or 0 for nil.
func ErrorCode(err error) int {
	obj := protocol.ErrorFor(err)
	if obj == nil {
		return 0
	}

	return obj.Code
}
