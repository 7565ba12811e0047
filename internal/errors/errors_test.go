package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathMappingError(t *testing.T) {
	err := &PathMappingError{Path: "/etc/passwd", Root: "/home/dev", Err: ErrOutsideRoot}

	require.Equal(t, `map path "/etc/passwd" (root "/home/dev"): path outside mapped root`, err.Error())
	require.ErrorIs(t, err, ErrOutsideRoot)
	require.True(t, err.IsBridgeError())
}

func TestPathMappingError_NoRoot(t *testing.T) {
	err := &PathMappingError{Path: "src", Err: ErrMappingDisabled}

	require.Equal(t, `map path "src": path mapping disabled`, err.Error())
	require.ErrorIs(t, err, ErrMappingDisabled)
}

func TestProcessStartError(t *testing.T) {
	root := errors.New("permission denied")
	err := &ProcessStartError{Path: "/usr/bin/java", Err: root}

	require.Equal(t, "start process /usr/bin/java: permission denied", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsBridgeError())
}

func TestProcessCommunicationError(t *testing.T) {
	err := &ProcessCommunicationError{Op: "read", Err: ErrProcessTimeout}

	require.Equal(t, "process communication failed (read): process timeout", err.Error())
	require.ErrorIs(t, err, ErrProcessTimeout)
	require.True(t, err.IsBridgeError())
}

func TestSessionNotFoundError(t *testing.T) {
	err := &SessionNotFoundError{ID: "abc"}

	require.Equal(t, "session not found: abc", err.Error())
	require.True(t, err.IsBridgeError())
}

func TestInvalidParamsError(t *testing.T) {
	err := &InvalidParamsError{Param: "sessionId", Reason: "is required"}

	require.Equal(t, "invalid params: sessionId is required", err.Error())
}

func TestNotFoundErrors(t *testing.T) {
	java := &JavaNotFoundError{SearchedPaths: []string{"$JAVA_HOME", "$PATH"}}
	jar := &JarNotFoundError{Path: "/opt/bsl/ls.jar"}

	require.Equal(t, "java runtime not found in: [$JAVA_HOME $PATH]", java.Error())
	require.Equal(t, "BSL Language Server jar not found: /opt/bsl/ls.jar", jar.Error())
}

func TestExecutionFailedError(t *testing.T) {
	err := &ExecutionFailedError{Op: "analyze", ExitCode: 2, Output: "Unable to access jarfile"}

	require.Equal(t, "analyze failed with exit code 2: Unable to access jarfile", err.Error())
	require.True(t, err.IsBridgeError())
}

// TestAsType_ThroughWrapping verifies typed errors survive fmt.Errorf wrapping.
func TestAsType_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create session: %w", &ProcessStartError{Path: "java", Err: errors.New("boom")})

	startErr, ok := errors.AsType[*ProcessStartError](wrapped)
	require.True(t, ok)
	require.Equal(t, "java", startErr.Path)

	var bridgeErr BridgeError
	require.ErrorAs(t, wrapped, &bridgeErr)
}
