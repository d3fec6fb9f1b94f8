package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devshare/analytics-go/pkg/id"
	"github.com/devshare/analytics-go/pkg/types"
)

// Default queue settings.
const (
	DefaultBatchSize     = 10
	DefaultBatchInterval = 5 * time.Second
)

// Transport delivers a batch to the collector. It is always called with a
// non-empty, ordered slice. Any non-nil error marks the whole batch as
// failed; there is no partial success.
type Transport func(ctx context.Context, events []types.PendingEvent) error

// Logger is the minimal logging interface used by the queue.
type Logger interface {
	Debug(msg string, args ...any)
}

// Config configures a Queue.
type Config struct {
	// BatchSize is the queue length that triggers an immediate flush.
	BatchSize int

	// BatchInterval is the period of the flush timer.
	BatchInterval time.Duration

	// Transport delivers batches. Required.
	Transport Transport

	// MaxAttempts caps delivery attempts per event. Events that fail this
	// many times are removed and passed to OnDrop. Zero retries forever.
	MaxAttempts int

	// OnDrop receives events removed after MaxAttempts failures.
	OnDrop func(events []types.PendingEvent, err error)

	// Generator assigns event IDs. Nil uses a fallback-mode generator.
	Generator *id.Generator

	// Logger receives diagnostics when Debug is set.
	Logger Logger

	// Debug enables diagnostic logging.
	Debug bool

	// Now overrides the clock used for enqueue timestamps.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.Generator == nil {
		c.Generator = id.NewGenerator(nil)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Queue buffers pending events and flushes them in batches.
// It is safe for concurrent use.
type Queue struct {
	cfg Config

	mu     sync.Mutex
	events []types.PendingEvent

	// timerMu guards stopTimer.
	timerMu   sync.Mutex
	stopTimer chan struct{}

	// inflight is a one-slot semaphore held for the duration of a transport call.
	inflight chan struct{}

	wg sync.WaitGroup
}

// New creates a queue and arms its flush timer.
// It panics if cfg.Transport is nil.
func New(cfg Config) *Queue {
	if cfg.Transport == nil {
		panic("queue: Transport is required")
	}
	cfg.applyDefaults()

	q := &Queue{
		cfg:      cfg,
		events:   make([]types.PendingEvent, 0, cfg.BatchSize),
		inflight: make(chan struct{}, 1),
	}
	q.Start()
	return q
}

// Enqueue stamps the event with an ID and the current time and appends it
// to the tail of the queue. When the queue reaches BatchSize the contents
// are taken before Enqueue returns and delivered on a background goroutine.
func (q *Queue) Enqueue(event types.Event) types.PendingEvent {
	pending := types.PendingEvent{
		Event:     event,
		ID:        q.cfg.Generator.MustGenerate(),
		Timestamp: q.cfg.Now(),
	}

	q.mu.Lock()
	q.events = append(q.events, pending)
	var batch []types.PendingEvent
	if len(q.events) >= q.cfg.BatchSize {
		batch = q.events
		q.events = make([]types.PendingEvent, 0, q.cfg.BatchSize)
	}
	q.mu.Unlock()

	q.debug("event enqueued", "event", pending.EventName, "id", pending.ID)

	if batch != nil {
		q.dispatch(batch)
	}
	return pending
}

// Flush delivers everything currently queued. It is a no-op on an empty
// queue. On failure the batch is returned to the head of the queue and a
// *FlushError is returned.
func (q *Queue) Flush(ctx context.Context) error {
	batch := q.take()
	if len(batch) == 0 {
		return nil
	}
	return q.send(ctx, batch)
}

// Start arms the periodic flush timer, cancelling any timer already running.
func (q *Queue) Start() {
	q.timerMu.Lock()
	defer q.timerMu.Unlock()

	if q.stopTimer != nil {
		close(q.stopTimer)
	}
	stop := make(chan struct{})
	q.stopTimer = stop

	q.wg.Add(1)
	go q.timerLoop(stop)
}

// Stop cancels the flush timer. It does not flush, and a transport call
// already in flight runs to completion.
func (q *Queue) Stop() {
	q.timerMu.Lock()
	defer q.timerMu.Unlock()

	if q.stopTimer != nil {
		close(q.stopTimer)
		q.stopTimer = nil
	}
}

// Clear discards all queued events.
func (q *Queue) Clear() {
	q.mu.Lock()
	n := len(q.events)
	q.events = make([]types.PendingEvent, 0, q.cfg.BatchSize)
	q.mu.Unlock()

	if n > 0 {
		q.debug("queue cleared", "discarded", n)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Wait blocks until the timer goroutine and every background delivery have
// returned. Call Stop first, otherwise Wait does not return.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// take snapshots and clears the live queue.
func (q *Queue) take() []types.PendingEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	batch := q.events
	q.events = make([]types.PendingEvent, 0, q.cfg.BatchSize)
	return batch
}

// dispatch delivers a batch on a tracked goroutine.
func (q *Queue) dispatch(batch []types.PendingEvent) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.send(context.Background(), batch); err != nil {
			q.debug("background flush failed", "error", err)
		}
	}()
}

func (q *Queue) timerLoop(stop <-chan struct{}) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := q.Flush(context.Background()); err != nil {
				q.debug("timer flush failed", "error", err)
			}
		}
	}
}

// send hands a batch to the transport, holding the in-flight slot.
func (q *Queue) send(ctx context.Context, batch []types.PendingEvent) error {
	select {
	case q.inflight <- struct{}{}:
	case <-ctx.Done():
		// Never reached the transport, so this is not a delivery attempt.
		q.putBack(batch)
		return &FlushError{Events: len(batch), Err: ctx.Err()}
	}

	q.debug("flushing events", "count", len(batch))
	err := q.callTransport(ctx, batch)
	<-q.inflight

	if err == nil {
		q.debug("events flushed", "count", len(batch))
		return nil
	}

	dropped := q.requeue(batch, err)
	q.debug("flush failed, events requeued", "count", len(batch)-dropped, "dropped", dropped, "error", err)
	return &FlushError{Events: len(batch), Dropped: dropped, Err: err}
}

func (q *Queue) callTransport(ctx context.Context, batch []types.PendingEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTransportPanic, r)
		}
	}()
	return q.cfg.Transport(ctx, batch)
}

// requeue records a failed attempt on every event, drops those over the
// attempt ceiling and prepends the rest. It returns the number dropped.
func (q *Queue) requeue(batch []types.PendingEvent, cause error) int {
	retry := make([]types.PendingEvent, 0, len(batch))
	var dropped []types.PendingEvent
	for _, e := range batch {
		e.Attempts++
		if q.cfg.MaxAttempts > 0 && e.Attempts >= q.cfg.MaxAttempts {
			dropped = append(dropped, e)
			continue
		}
		retry = append(retry, e)
	}

	q.putBack(retry)

	if len(dropped) > 0 && q.cfg.OnDrop != nil {
		q.cfg.OnDrop(dropped, cause)
	}
	return len(dropped)
}

// putBack prepends events ahead of whatever arrived in the meantime.
func (q *Queue) putBack(events []types.PendingEvent) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]types.PendingEvent, 0, len(events)+len(q.events))
	merged = append(merged, events...)
	merged = append(merged, q.events...)
	q.events = merged
}

func (q *Queue) debug(msg string, args ...any) {
	if q.cfg.Debug && q.cfg.Logger != nil {
		q.cfg.Logger.Debug(msg, args...)
	}
}
