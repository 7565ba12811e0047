package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*PathMappingError)(nil)
	_ BridgeError = (*ProcessStartError)(nil)
	_ BridgeError = (*ProcessCommunicationError)(nil)
	_ BridgeError = (*SessionNotFoundError)(nil)
	_ BridgeError = (*InvalidParamsError)(nil)
	_ BridgeError = (*JavaNotFoundError)(nil)
	_ BridgeError = (*JarNotFoundError)(nil)
	_ BridgeError = (*ExecutionFailedError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrMethodNotFound indicates the requested method is not in the catalogue.
	ErrMethodNotFound = errors.New("method not found")

	// ErrProcessClosed indicates the process handle was closed and cannot be reused.
	ErrProcessClosed = errors.New("process closed: handles are single-use, create a new one")

	// ErrProcessNotStarted indicates the process handle has not been started.
	ErrProcessNotStarted = errors.New("process not started")

	// ErrProcessTimeout indicates a process did not finish within its deadline.
	ErrProcessTimeout = errors.New("process timeout")

	// ErrPoolClosed indicates the session pool has been shut down.
	ErrPoolClosed = errors.New("session pool closed")

	// ErrMappingDisabled indicates no host root is configured for path translation.
	ErrMappingDisabled = errors.New("path mapping disabled")

	// ErrOutsideRoot indicates a path does not live under the configured root.
	ErrOutsideRoot = errors.New("path outside mapped root")
)

// PathMappingError indicates a host path could not be translated.
type PathMappingError struct {
	Path string
	Root string
	Err  error
}

func (e *PathMappingError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("map path %q (root %q): %v", e.Path, e.Root, e.Err)
	}

	return fmt.Sprintf("map path %q: %v", e.Path, e.Err)
}

func (e *PathMappingError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *PathMappingError) IsBridgeError() bool { return true }

// ProcessStartError indicates the OS could not spawn the tool process.
type ProcessStartError struct {
	Path string
	Err  error
}

func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("start process %s: %v", e.Path, e.Err)
}

func (e *ProcessStartError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessStartError) IsBridgeError() bool { return true }

// ProcessCommunicationError indicates a broken pipe, a dead process or a timeout.
type ProcessCommunicationError struct {
	Op  string
	Err error
}

func (e *ProcessCommunicationError) Error() string {
	return fmt.Sprintf("process communication failed (%s): %v", e.Op, e.Err)
}

func (e *ProcessCommunicationError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessCommunicationError) IsBridgeError() bool { return true }

// SessionNotFoundError indicates no session is registered under the id.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return "session not found: " + e.ID
}

// IsBridgeError implements BridgeError.
func (e *SessionNotFoundError) IsBridgeError() bool { return true }

// InvalidParamsError indicates a missing or ill-typed request parameter.
type InvalidParamsError struct {
	Param  string
	Reason string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params: %s %s", e.Param, e.Reason)
}

// IsBridgeError implements BridgeError.
func (e *InvalidParamsError) IsBridgeError() bool { return true }

// JavaNotFoundError indicates no Java runtime could be located.
type JavaNotFoundError struct {
	SearchedPaths []string
}

func (e *JavaNotFoundError) Error() string {
	return fmt.Sprintf("java runtime not found in: %v", e.SearchedPaths)
}

// IsBridgeError implements BridgeError.
func (e *JavaNotFoundError) IsBridgeError() bool { return true }

// JarNotFoundError indicates the BSL Language Server jar is missing.
type JarNotFoundError struct {
	Path string
}

func (e *JarNotFoundError) Error() string {
	return "BSL Language Server jar not found: " + e.Path
}

// IsBridgeError implements BridgeError.
func (e *JarNotFoundError) IsBridgeError() bool { return true }

// ExecutionFailedError indicates the tool ran but reported failure.
type ExecutionFailedError struct {
	Op       string
	ExitCode int
	Output   string
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Op, e.ExitCode, e.Output)
}

// IsBridgeError implements BridgeError.
func (e *ExecutionFailedError) IsBridgeError() bool { return true }
