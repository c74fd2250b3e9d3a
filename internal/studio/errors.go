package studio

import (
	"errors"
	"fmt"
)

// ErrVersionConflict is returned when a scene mutation carried a stale
// version stamp. The caller's copy is out of date and must be refreshed
// before retrying.
var ErrVersionConflict = errors.New("scene version conflict")

// APIError represents a non-2xx response from the studio backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("studio request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and network errors.
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}
