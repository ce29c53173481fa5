package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/stockpod/stockpodgo/internal/models"
)

// ErrNotFound marks the valid empty state: no analysis run exists for the
// requested container or session. It is deliberately not an APIError so that
// callers never offer a retry where none is useful.
var ErrNotFound = errors.New("no inventory analysis found")

// APIError is a typed failure returned by the inventory service
type APIError struct {
	Code       string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inventory api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inventory api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is the valid "no analysis exists" result
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a review conflict (run already reviewed)
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == models.CodeReviewConflict
}

// IsInvalid reports whether err is a server-side validation rejection
func IsInvalid(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == models.CodeReviewInvalid
}

// IsUnavailable reports whether err is a retryable service outage
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == models.CodeServiceUnavailable
}

// RetryAfter extracts the server-provided retry delay, or zero
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
