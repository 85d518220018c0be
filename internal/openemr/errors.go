package openemr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AuthError reports a rejected credential exchange at the token endpoint.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("openemr: token request failed (status %d): %s", e.StatusCode, e.Body)
}

// APIError reports a non-2xx API response that was not recovered by the
// single 401 retry.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openemr: API error (status %d) on %s: %s", e.StatusCode, e.Path, e.Body)
}

// TimeoutError reports a remote call that exceeded its deadline.
type TimeoutError struct {
	Path string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("openemr: request to %s timed out: %v", e.Path, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// classifyTransportError distinguishes deadline expiry from other transport
// failures so callers can surface timeouts as their own error kind.
func classifyTransportError(path string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Path: path, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Path: path, Err: err}
	}
	return fmt.Errorf("openemr: request to %s failed: %w", path, err)
}
