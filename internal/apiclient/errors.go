package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError reports a non-2xx response from the backend. Status and the raw
// response body are preserved so callers can map statuses (401 sign-out, etc.)
// without unwrapping.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error: HTTP %d", e.Status)
}

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitError reports a request rejected by the local sliding-window
// limiter. No network call was made.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry in %s", e.Key, e.RetryAfter.Round(time.Millisecond))
}

// ValidationError reports malformed input rejected before dispatch. It is
// deterministic and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// IsTransient reports whether an error is worth retrying: connection-level
// failures, any 5xx, or 429.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}

	return false
}
