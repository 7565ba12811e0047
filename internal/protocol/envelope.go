package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Version is the JSON-RPC version stamped on responses.
const Version = "2.0"

// notificationPrefix marks methods that never get a response.
const notificationPrefix = "notifications/"

// Request is one inbound call.
//
// Wire format:
//
//	{"jsonrpc": "2.0", "id": 1, "method": "analyze", "params": {"sourcePath": "/w/src"}}
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return strings.HasPrefix(r.Method, notificationPrefix)
}

// Response is the single terminal reply to a Request.
//
// Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a Response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return e.Message
}

// NewResult builds a success response.
func NewResult(id json.RawMessage, result any) *Response {
	if result == nil {
		result = struct{}{}
	}

	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response.
func NewError(id json.RawMessage, obj *ErrorObject) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: obj}
}

// ParseRequest decodes one envelope. Malformed input yields a ready-made
// parse error response with a null id.
func ParseRequest(data []byte) (*Request, *Response) {
	var req Request

	if err := json.Unmarshal(bytes.TrimSpace(data), &req); err != nil {
		return nil, NewError(nil, &ErrorObject{Code: CodeParseError, Message: "parse error: " + err.Error()})
	}

	return &req, nil
}

// idKey renders an id in canonical form so equal ids compare equal.
func idKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}

	return canonicalID(v)
}

func canonicalID(v any) string {
	if v == nil {
		return ""
	}

	canonical, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(canonical)
}
