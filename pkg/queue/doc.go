// Package queue implements the batching queue that sits between event
// production and event delivery.
//
// Events are appended in FIFO order and handed to a Transport either when
// the queue reaches BatchSize (immediately, from inside Enqueue) or when
// the periodic timer fires every BatchInterval. A failed delivery puts the
// whole batch back at the head of the queue, ahead of anything enqueued
// while the transport call was in flight, so delivery is at-least-once and
// duplicates are possible. Deduplication by event ID is left to the
// collector.
//
// Snapshots are taken synchronously, so two flushes never carry the same
// event, and transport calls are serialized: at most one batch is in flight
// per queue at any time.
//
// Example:
//
//	q := queue.New(queue.Config{
//	    BatchSize:     10,
//	    BatchInterval: 5 * time.Second,
//	    Transport: func(ctx context.Context, events []types.PendingEvent) error {
//	        return send(ctx, events)
//	    },
//	})
//	defer q.Stop()
//
//	q.Enqueue(types.Event{EventName: "signup"})
//	if err := q.Flush(ctx); err != nil {
//	    // the batch is back in the queue
//	}
package queue
