package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error response from the transcription backend.
// The backend reports failures as JSON bodies with a "detail" field; when the
// body is not JSON the raw text is kept instead.
type APIError struct {
	// StatusCode is the HTTP status of the failed response.
	StatusCode int

	// Detail is the server-supplied error message, falling back to the raw
	// response body, falling back to the status text.
	Detail string

	// Method and Path identify the failed request for diagnostics.
	Method string
	Path   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

// Unwrap maps well-known status codes onto domain sentinels so callers can
// use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	}
	return nil
}

// Retryable reports whether the request that produced this error is safe and
// worth retrying. Server-side faults and throttling are retryable; client
// errors are not.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AsAPIError returns the *APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
