package analytics

import (
	"context"
	"errors"
)

// ClientState represents the current state of the client lifecycle.
type ClientState int32

const (
	// ClientStateActive indicates the client is active and accepting events.
	ClientStateActive ClientState = iota

	// ClientStateShuttingDown indicates the client is delivering its last
	// events and no longer accepts new ones.
	ClientStateShuttingDown

	// ClientStateClosed indicates the client has been closed.
	ClientStateClosed
)

// String returns a string representation of the client state.
func (s ClientState) String() string {
	switch s {
	case ClientStateActive:
		return "active"
	case ClientStateShuttingDown:
		return "shutting_down"
	case ClientStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s ClientState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State returns the current client state.
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

// IsActive returns true if the client accepts events.
func (c *Client) IsActive() bool {
	return c.State() == ClientStateActive
}

// transition attempts to move from one state to another.
func (c *Client) transition(from, to ClientState) bool {
	if c.state.CompareAndSwap(int32(from), int32(to)) {
		c.debug("client state changed", "from", from, "to", to)
		return true
	}
	return false
}

// Flush sends every queued event now. On failure the events stay queued
// for the next attempt and a *FlushError is returned.
//
// Flush on an empty queue is a no-op and never calls the transport.
func (c *Client) Flush(ctx context.Context) error {
	if c.State() == ClientStateClosed {
		return ErrClientClosed
	}
	return c.queue.Flush(ctx)
}

// Destroy stops the flush timer and discards queued events without
// sending them. Use Shutdown to deliver pending events first.
// Destroy is idempotent.
func (c *Client) Destroy() {
	c.lifecycleMu.Lock()
	for {
		state := c.State()
		if state == ClientStateClosed {
			c.lifecycleMu.Unlock()
			return
		}
		if c.transition(state, ClientStateClosed) {
			break
		}
	}
	c.lifecycleMu.Unlock()

	c.queue.Stop()
	c.queue.Clear()
	c.debug("analytics client destroyed")
}

// Shutdown delivers pending events and closes the client.
//
// The shutdown process:
//  1. Stop accepting new events
//  2. Stop the flush timer
//  3. Flush the queue once
//  4. Wait for in-flight deliveries (or until ctx is done)
//  5. Flush again if a failed delivery returned events to the queue
//  6. Discard anything still queued and mark the client closed
//
// If ctx has no deadline, DefaultShutdownTimeout applies. A timeout
// returns a *ShutdownError carrying the number of undelivered events;
// a failed final flush returns the *FlushError. A nil error means every
// event tracked before Shutdown was delivered.
func (c *Client) Shutdown(ctx context.Context) error {
	c.lifecycleMu.Lock()
	ok := c.transition(ClientStateActive, ClientStateShuttingDown)
	c.lifecycleMu.Unlock()
	if !ok {
		return ErrClientClosed
	}

	c.queue.Stop()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
	}

	flushErr := c.queue.Flush(ctx)

	done := make(chan struct{})
	go func() {
		c.queue.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		err = flushErr
		// A background delivery that failed during the wait requeued its
		// batch after the final flush took its snapshot.
		if c.queue.Len() > 0 {
			err = c.queue.Flush(ctx)
		}
	case <-ctx.Done():
		err = &ShutdownError{Cause: ctx.Err(), PendingEvents: c.queue.Len()}
	}

	if pending := c.queue.Len(); pending > 0 {
		c.debug("discarding undelivered events", "count", pending)
	}
	c.queue.Clear()
	c.transition(ClientStateShuttingDown, ClientStateClosed)

	if err != nil && !errors.Is(err, context.Canceled) {
		c.config.Logger.Warn("analytics shutdown incomplete", "error", err)
	}
	return err
}
