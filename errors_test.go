package cmpfetch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type statusCodeErr struct{ code int }

func (e *statusCodeErr) Error() string   { return "status code error" }
func (e *statusCodeErr) StatusCode() int { return e.code }

type statusErr struct{ code int }

func (e *statusErr) Error() string { return "status error" }
func (e *statusErr) Status() int   { return e.code }

func TestSentinelErrors(t *testing.T) {
	errs := []error{
		ErrInvalidContext,
		ErrAlreadyMounted,
		ErrKeyAssigned,
		ErrReadOnlyKey,
	}

	for i, err1 := range errs {
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v and %v", err1, err2)
			}
		}
		if !strings.HasPrefix(err1.Error(), "cmpfetch:") {
			t.Errorf("Error %q should start with 'cmpfetch:'", err1.Error())
		}
	}
}

func TestIsInvalidContext(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrInvalidContext", ErrInvalidContext, true},
		{"wrapped", fmt.Errorf("wrapped: %w", ErrInvalidContext), true},
		{"other error", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidContext(tt.err); got != tt.expect {
				t.Errorf("IsInvalidContext(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		message string
	}{
		{"plain string", "oops", "oops"},
		{"error", errors.New("boom"), "boom"},
		{"object without message", map[string]any{"code": 7}, `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Normalize(tt.input)
			if fe == nil {
				t.Fatal("Normalize returned nil")
			}
			if fe.Message != tt.message {
				t.Errorf("Message = %q, want %q", fe.Message, tt.message)
			}
		})
	}
}

func TestNormalizeStatusCode(t *testing.T) {
	tests := []struct {
		name  string
		input any
		code  int
	}{
		{"plain string defaults", "oops", 500},
		{"plain error defaults", errors.New("boom"), 500},
		{"StatusCode method", &statusCodeErr{code: 404}, 404},
		{"Status method", &statusErr{code: 403}, 403},
		{"wrapped StatusCode method", fmt.Errorf("w: %w", &statusCodeErr{code: 418}), 418},
		{"status field", map[string]any{"status": 404}, 404},
		{"statusCode field wins over status", map[string]any{"statusCode": 422, "status": 404}, 422},
		{"nested response status", map[string]any{"response": map[string]any{"status": 502}}, 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Normalize(tt.input)
			if fe.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", fe.StatusCode, tt.code)
			}
		})
	}
}

func TestNormalizeCircular(t *testing.T) {
	circular := map[string]any{}
	circular["self"] = circular

	fe := Normalize(circular)
	if fe == nil {
		t.Fatal("Normalize returned nil")
	}
	if fe.Message == "" {
		t.Error("Message should be a non-empty placeholder for circular values")
	}
	if !strings.HasPrefix(fe.Message, "[") || !strings.HasSuffix(fe.Message, "]") {
		t.Errorf("Message = %q, want bracketed type-name placeholder", fe.Message)
	}
	if fe.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", fe.StatusCode)
	}
}

func TestNormalizePreservesFields(t *testing.T) {
	fe := Normalize(map[string]any{"status": 404, "detail": "missing"})

	if fe.StatusCode != 404 {
		t.Fatalf("StatusCode = %d, want 404", fe.StatusCode)
	}
	if fe.Fields == nil {
		t.Fatal("Fields should be preserved")
	}
	if got, ok := fe.Fields["detail"].(string); !ok || got != "missing" {
		t.Errorf(`Fields["detail"] = %v, want "missing"`, fe.Fields["detail"])
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	orig := &FetchError{Message: "boom", StatusCode: 404}

	if got := Normalize(orig); got != orig {
		t.Error("Normalize should return a *FetchError unchanged")
	}
	if got := Normalize(fmt.Errorf("w: %w", orig)); got != orig {
		t.Error("Normalize should unwrap to an embedded *FetchError")
	}
}

func TestNormalizeNil(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
}
