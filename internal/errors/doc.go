// Package errors defines the error taxonomy of the BSL bridge.
//
// Typed errors carry the context needed to map a failure onto a wire-level
// error code. All of them implement BridgeError and can be inspected with
// errors.Is, errors.As and errors.AsType.
package errors
