package cmpfetch

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Sentinel errors for lifecycle misuse.
var (
	ErrInvalidContext = errors.New("cmpfetch: DeclareFetch called outside component setup")
	ErrAlreadyMounted = errors.New("cmpfetch: instance already mounted")
	ErrKeyAssigned    = errors.New("cmpfetch: fetch key already assigned")
	ErrReadOnlyKey    = errors.New("cmpfetch: cannot assign read-only key")
)

// IsInvalidContext checks if err signals DeclareFetch misuse.
func IsInvalidContext(err error) bool {
	return errors.Is(err, ErrInvalidContext)
}

// DefaultStatusCode is used when a fetch failure carries no status
// information of its own.
const DefaultStatusCode = 500

// FetchError is the normalized form of any fetch callback failure. It is
// stored in an instance's fetch state and serialized into payload error
// markers; it never propagates as a panic or a returned error across the
// instance boundary.
//
// Fields preserves the structural keys of the original error value, when it
// had any, so callers can recover transport-specific detail. Message and
// StatusCode always win over same-named keys in Fields.
type FetchError struct {
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Fields     map[string]any `json:"fields,omitempty"`
}

func (e *FetchError) Error() string { return e.Message }

// Normalize converts an arbitrary failure value into a FetchError. It
// accepts errors, strings, and any recovered panic value; it never fails
// and has no side effects.
//
// The message is taken from the value itself (error text or string), else
// from its JSON serialization, else from a bracketed type-name placeholder
// when serialization is impossible (circular structures). The status code
// resolves from a StatusCode method or field, then a Status method or
// field, then a nested response status, else DefaultStatusCode.
func Normalize(v any) *FetchError {
	if v == nil {
		return nil
	}

	out := &FetchError{StatusCode: DefaultStatusCode}

	statusKnown := false
	switch val := v.(type) {
	case *FetchError:
		return val
	case error:
		var fe *FetchError
		if errors.As(val, &fe) {
			return fe
		}
		out.Message = val.Error()
		out.Fields = fieldsOf(val)
		if sc, ok := statusOf(val); ok {
			out.StatusCode = sc
			statusKnown = true
		}
	case string:
		out.Message = val
	case fmt.Stringer:
		out.Message = val.String()
	default:
		out.Fields = fieldsOf(val)
		if b, err := json.Marshal(val); err == nil {
			out.Message = string(b)
		}
	}

	if !statusKnown {
		if sc, ok := statusFromFields(out.Fields); ok {
			out.StatusCode = sc
		}
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("[%T]", v)
	}
	return out
}

// statusOf resolves a status code from an error's typed surface.
func statusOf(err error) (int, bool) {
	type statusCoder interface{ StatusCode() int }
	type statuser interface{ Status() int }

	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	var st statuser
	if errors.As(err, &st) {
		return st.Status(), true
	}
	return 0, false
}

// fieldsOf captures the structural keys of a value via its JSON object
// form. Non-object and unserializable values yield nil.
func fieldsOf(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}

// statusFromFields resolves a status code from the structural form, in
// priority order: statusCode, status, response.status.
func statusFromFields(m map[string]any) (int, bool) {
	if m == nil {
		return 0, false
	}
	if sc, ok := asInt(m["statusCode"]); ok {
		return sc, true
	}
	if sc, ok := asInt(m["status"]); ok {
		return sc, true
	}
	if resp, ok := m["response"].(map[string]any); ok {
		if sc, ok := asInt(resp["status"]); ok {
			return sc, true
		}
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
