package protocol

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// Wire error codes.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodePathMapping          = -32001
	CodeProcessStart         = -32002
	CodeProcessCommunication = -32003
	CodeSessionNotFound      = -32004
	CodeExecutionFailed      = -32005
)

// errInvalidRequest marks envelopes that decode but are not valid calls.
var errInvalidRequest = stderrors.New("invalid request")

// ErrorFor maps err to its wire representation. A nil err maps to nil.
func ErrorFor(err error) *ErrorObject {
	if err == nil {
		return nil
	}

	if obj, ok := stderrors.AsType[*ErrorObject](err); ok {
		return obj
	}

	obj := &ErrorObject{Code: CodeInternalError, Message: err.Error()}

	switch {
	case stderrors.Is(err, errInvalidRequest):
		obj.Code = CodeInvalidRequest
	case stderrors.Is(err, errors.ErrMethodNotFound):
		obj.Code = CodeMethodNotFound
	}

	if invalid, ok := stderrors.AsType[*errors.InvalidParamsError](err); ok {
		obj.Code = CodeInvalidParams
		obj.Data = map[string]any{"param": invalid.Param}
	}

	if _, ok := stderrors.AsType[*errors.PathMappingError](err); ok {
		obj.Code = CodePathMapping
	}

	if _, ok := stderrors.AsType[*errors.ProcessStartError](err); ok {
		obj.Code = CodeProcessStart
	}

	if _, ok := stderrors.AsType[*errors.JavaNotFoundError](err); ok {
		obj.Code = CodeProcessStart
	}

	if _, ok := stderrors.AsType[*errors.JarNotFoundError](err); ok {
		obj.Code = CodeProcessStart
	}

	if _, ok := stderrors.AsType[*errors.ProcessCommunicationError](err); ok {
		obj.Code = CodeProcessCommunication
	}

	if stderrors.Is(err, errors.ErrProcessClosed) || stderrors.Is(err, errors.ErrProcessNotStarted) {
		obj.Code = CodeProcessCommunication
	}

	if notFound, ok := stderrors.AsType[*errors.SessionNotFoundError](err); ok {
		obj.Code = CodeSessionNotFound
		obj.Data = map[string]any{"sessionId": notFound.ID}
	}

	if failed, ok := stderrors.AsType[*errors.ExecutionFailedError](err); ok {
		obj.Code = CodeExecutionFailed
		obj.Data = map[string]any{"exitCode": failed.ExitCode, "output": failed.Output}
	}

	if obj.Code == CodeInternalError && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		obj.Data = map[string]any{"cancelled": true}
	}

	return obj
}

// HTTPStatus returns the HTTP status for a wire error code.
func HTTPStatus(code int) int {
	switch code {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams, CodePathMapping:
		return http.StatusBadRequest
	case CodeMethodNotFound, CodeSessionNotFound:
		return http.StatusNotFound
	case CodeProcessCommunication:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor returns the HTTP status for a response.
func StatusFor(resp *Response) int {
	if resp == nil || resp.Error == nil {
		return http.StatusOK
	}

	return HTTPStatus(resp.Error.Code)
}
