package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wagiedev/bsl-mcp-server/internal/errors"
)

// Params is a decoded params object.
type Params map[string]any

// decodeParams accepts a missing, null or object params member.
func decodeParams(raw json.RawMessage) (Params, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Params{}, nil
	}

	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &errors.InvalidParamsError{Param: "params", Reason: "must be an object"}
	}

	return p, nil
}

// String returns the first non-empty string among name and its aliases.
// A present value of another type is an error.
func (p Params) String(name string, aliases ...string) (string, error) {
	for _, key := range append([]string{name}, aliases...) {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}

		s, ok := v.(string)
		if !ok {
			return "", &errors.InvalidParamsError{Param: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}

		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}

	return "", nil
}

// RequiredString is String that fails when no value is present.
func (p Params) RequiredString(name string, aliases ...string) (string, error) {
	s, err := p.String(name, aliases...)
	if err != nil {
		return "", err
	}

	if s == "" {
		return "", &errors.InvalidParamsError{Param: name, Reason: "is required"}
	}

	return s, nil
}

// Bool returns the named boolean, or def when absent.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}

	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		// query strings carry booleans as text
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed, nil
		}
	}

	return false, &errors.InvalidParamsError{Param: name, Reason: fmt.Sprintf("must be a boolean, got %T", v)}
}

// Strings returns the named string list. A single string is accepted as a
// one-element list.
func (p Params) Strings(name string) ([]string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, nil
	}

	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))

		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &errors.InvalidParamsError{Param: name, Reason: fmt.Sprintf("item %d must be a string", i)}
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, &errors.InvalidParamsError{Param: name, Reason: fmt.Sprintf("must be a list of strings, got %T", v)}
	}
}

// Object returns the named nested object, or nil when absent.
func (p Params) Object(name string) (map[string]any, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, nil
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, &errors.InvalidParamsError{Param: name, Reason: fmt.Sprintf("must be an object, got %T", v)}
	}

	return m, nil
}
