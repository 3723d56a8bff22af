package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestSentinelChecks verifies errors.Is matching through wrapping.
func TestSentinelChecks(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", fmt.Errorf("meeting abc: %w", ErrNotFound), ErrNotFound},
		{"validation", fmt.Errorf("title: %w", ErrValidation), ErrValidation},
		{"unauthorized", fmt.Errorf("api key: %w", ErrUnauthorized), ErrUnauthorized},
		{"task failed", fmt.Errorf("task xyz: %w", ErrTaskFailed), ErrTaskFailed},
		{"recording active", fmt.Errorf("mic: %w", ErrRecordingActive), ErrRecordingActive},
		{"invalid state", fmt.Errorf("meeting done: %w", ErrInvalidState), ErrInvalidState},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("wrapped error did not match sentinel: %v", tc.err)
			}
			if errors.Is(errors.New("unrelated"), tc.sentinel) {
				t.Error("sentinel matched unrelated error")
			}
		})
	}
}

// TestAPIError_Unwrap verifies status-code-to-sentinel mapping.
func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
	}

	for _, tc := range tests {
		err := &APIError{StatusCode: tc.status, Detail: "boom", Method: "GET", Path: "/api/meetings/x"}
		if !errors.Is(err, tc.sentinel) {
			t.Errorf("status %d: errors.Is(%v) = false", tc.status, tc.sentinel)
		}
	}

	// 500 maps to no sentinel.
	err := &APIError{StatusCode: http.StatusInternalServerError}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		t.Error("500 should not match client-error sentinels")
	}
}

// TestAPIError_Retryable verifies retry classification.
func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusInternalServerError, false},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}

	for _, tc := range tests {
		err := &APIError{StatusCode: tc.status}
		if got := err.Retryable(); got != tc.retryable {
			t.Errorf("status %d: Retryable() = %v, want %v", tc.status, got, tc.retryable)
		}
	}
}

// TestAPIError_Message verifies the error string contains the pieces a user
// needs to diagnose a failure.
func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 404, Detail: "Task not found", Method: "GET", Path: "/api/tasks/abc"}
	msg := err.Error()
	for _, want := range []string{"404", "Task not found", "GET", "/api/tasks/abc"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

// TestAsAPIError verifies extraction through wrapping.
func TestAsAPIError(t *testing.T) {
	inner := &APIError{StatusCode: 503, Detail: "overloaded"}
	wrapped := fmt.Errorf("submitting transcription: %w", inner)

	got, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatal("AsAPIError did not find wrapped APIError")
	}
	if got.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", got.StatusCode)
	}

	if _, ok := AsAPIError(errors.New("plain")); ok {
		t.Error("AsAPIError matched a plain error")
	}
}
