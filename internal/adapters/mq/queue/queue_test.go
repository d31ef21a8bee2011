package queue

import (
	"context"
	"testing"
	"time"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(8))

	if !q.Enqueue(ctx, Fulfillment{RequestID: "req-1", RandomValue: 7}) {
		t.Fatal("enqueue into empty queue failed")
	}
	if got := q.Len(ctx); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}

	select {
	case f := <-q.Dequeue(ctx):
		if f.RequestID != "req-1" || f.RandomValue != 7 {
			t.Fatalf("dequeued %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue timed out")
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(2))

	if !q.Enqueue(ctx, Fulfillment{RequestID: "a"}) {
		t.Fatal("enqueue a")
	}
	if !q.Enqueue(ctx, Fulfillment{RequestID: "b"}) {
		t.Fatal("enqueue b")
	}
	if q.Enqueue(ctx, Fulfillment{RequestID: "c"}) {
		t.Fatal("full queue must reject, not block")
	}
	if got := q.Len(ctx); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue()

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if q.Enqueue(ctx, Fulfillment{RequestID: "late"}) {
		t.Fatal("closed queue must reject enqueues")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("double close must be a no-op, got %v", err)
	}
}

func TestQueueCloseDrainsThenEnds(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(4))

	q.Enqueue(ctx, Fulfillment{RequestID: "a"})
	q.Enqueue(ctx, Fulfillment{RequestID: "b"})
	_ = q.Close()

	out := q.Dequeue(ctx)
	var ids []string
	for f := range out {
		ids = append(ids, f.RequestID)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("drained %v, want [a b]", ids)
	}
}
