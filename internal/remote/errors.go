package remote

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Remote API error codes the sync engine reacts to.
const (
	// CodeUnknownFilterField is returned when a query filter references a
	// field the collection endpoint cannot filter on. Triggers the
	// client-side strategy downgrade.
	CodeUnknownFilterField = 3001

	// CodeDuplicateValue is returned when a create violates a field the
	// remote side enforces as unique.
	CodeDuplicateValue = 3006
)

// APIError is a parsed non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api error: status=%d code=%d: %s", e.StatusCode, e.Code, e.Message)
}

// RateLimitError signals backpressure: the account's quota is exhausted.
// Callers must defer for RetryAfter, not abandon the work.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is a backpressure signal and returns
// the retry-after duration.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsConflict reports whether err is a uniqueness/precondition conflict
// (HTTP 412 or a duplicate-value error code).
func IsConflict(err error) bool {
	var api *APIError
	if !errors.As(err, &api) {
		return false
	}
	return api.StatusCode == http.StatusPreconditionFailed || api.Code == CodeDuplicateValue
}

// IsFilterRejected reports whether err means the remote API refused a
// lowered query filter. The whole fetch must then restart client-side;
// partial API-filtered results cannot be trusted.
func IsFilterRejected(err error) bool {
	var api *APIError
	if !errors.As(err, &api) {
		return false
	}
	return api.Code == CodeUnknownFilterField || api.StatusCode == http.StatusPreconditionFailed
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var api *APIError
	return errors.As(err, &api) && api.StatusCode == http.StatusNotFound
}
