package analytics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/queue"
)

// Sentinel errors for configuration validation and client state.
var (
	ErrMissingAPIURL     = errors.New("analytics: api url is required")
	ErrMissingAppID      = errors.New("analytics: app id is required")
	ErrInvalidConfig     = errors.New("analytics: invalid configuration")
	ErrNilConfig         = errors.New("analytics: config cannot be nil")
	ErrClientClosed      = errors.New("analytics: client is closed")
	ErrMalformedResponse = errors.New("analytics: malformed collector response")
)

// ErrStorageUnavailable is reported by storage that cannot persist anything.
var ErrStorageUnavailable = identity.ErrStorageUnavailable

// FlushError reports a batch that could not be delivered and was requeued.
type FlushError = queue.FlushError

// AsFlushError extracts a *FlushError from err.
func AsFlushError(err error) (*FlushError, bool) {
	return queue.AsFlushError(err)
}

// Sentinel APIError values for use with errors.Is().
// These match on status code only.
var (
	ErrBadRequest   = &APIError{StatusCode: http.StatusBadRequest}
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}
	ErrRateLimited  = &APIError{StatusCode: http.StatusTooManyRequests}
)

// APIError represents a non-success response from the collector.
// It supports comparison via Is() on the status code.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("analytics: collector error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("analytics: collector error (status %d)", e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches APIErrors with the same status code.
//
//	if errors.Is(err, analytics.ErrRateLimited) { ... }
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// IsRetryable returns true for rate limiting and server errors.
// The queue retries every failure regardless; this is informational for
// OnDrop handlers and custom transports.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRetryable reports whether a delivery error is likely transient.
//
// Retryable conditions include:
//   - Rate limiting (429)
//   - Server errors (5xx)
//   - Network failures and timeouts
//
// Client errors, malformed responses, hook rejections and cancellation
// are not retryable.
//
// Example:
//
//	analytics.WithOnDrop(func(batch []types.PendingEvent, err error) {
//	    if analytics.IsRetryable(err) {
//	        spool.Save(batch)
//	    }
//	})
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ShutdownError is returned when Shutdown could not finish in time.
type ShutdownError struct {
	// Cause is the context error that ended the wait.
	Cause error

	// PendingEvents is the number of events still queued.
	PendingEvents int
}

// Error implements the error interface.
func (e *ShutdownError) Error() string {
	return fmt.Sprintf("analytics: shutdown timed out with %d pending events: %v", e.PendingEvents, e.Cause)
}

// Unwrap returns the cause.
func (e *ShutdownError) Unwrap() error {
	return e.Cause
}
