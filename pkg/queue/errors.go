package queue

import (
	"errors"
	"fmt"
)

// ErrTransportPanic is wrapped into the error reported when a Transport panics.
var ErrTransportPanic = errors.New("analytics: transport panicked")

// FlushError reports a batch that could not be delivered. The events it
// describes have been returned to the queue, except those handed to OnDrop.
type FlushError struct {
	// Events is the number of events in the failed batch.
	Events int

	// Dropped is the number of events that exceeded MaxAttempts.
	Dropped int

	// Err is the transport error.
	Err error
}

// Error implements the error interface.
func (e *FlushError) Error() string {
	if e.Dropped > 0 {
		return fmt.Sprintf("analytics: flush of %d events failed (%d dropped): %v", e.Events, e.Dropped, e.Err)
	}
	return fmt.Sprintf("analytics: flush of %d events failed: %v", e.Events, e.Err)
}

// Unwrap returns the transport error.
func (e *FlushError) Unwrap() error {
	return e.Err
}

// AsFlushError extracts a *FlushError from err.
func AsFlushError(err error) (*FlushError, bool) {
	var fe *FlushError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
