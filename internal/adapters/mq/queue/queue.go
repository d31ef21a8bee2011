// Package queue defines the bounded in-memory channel the randomness
// fulfillments flow through. Enqueue never blocks: a full queue rejects the
// fulfillment and the game stays pending until the stale-cancel path runs.
package queue

import (
	"context"
	"sync"

	"github.com/kyral/bandrush/internal/domain/model"
	"github.com/kyral/bandrush/pkg/metrics"
)

const defaultCapacity = 4096

// Fulfillment is the payload type flowing through the queue.
type Fulfillment = model.Fulfillment

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a fulfillment. Returns false if the queue is full or
	// closed and the fulfillment was not accepted.
	Enqueue(ctx context.Context, f Fulfillment) bool

	// Dequeue returns a channel receiving fulfillments as they arrive.
	// The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Fulfillment

	// Len returns the current number of queued fulfillments.
	Len(ctx context.Context) int

	// Close shuts the queue down; further enqueues are rejected.
	Close() error
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the queue bound.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	fulfillments chan Fulfillment
	capacity     int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.fulfillments = make(chan Fulfillment, q.capacity)
	return q
}

// Enqueue adds a fulfillment without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Fulfillment) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}
	select {
	case q.fulfillments <- f:
		metrics.UpdateQueueSize(len(q.fulfillments))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns the consumer channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Fulfillment {
	out := make(chan Fulfillment)
	go func() {
		defer close(out)
		for f := range q.fulfillments {
			select {
			case out <- f:
				metrics.UpdateQueueSize(len(q.fulfillments))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of queued fulfillments.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.fulfillments)
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.fulfillments)
	q.closed = true
	return nil
}
