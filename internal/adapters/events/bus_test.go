package events

import (
	"context"
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	at := time.Now()
	b.Publish(ctx, "game_started", at, map[string]any{"game_id": uint64(1)})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != "game_started" || !e.At.Equal(at) {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewBus(WithSubscriberBuffer(1))
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(ctx, "first", time.Now(), nil)
	b.Publish(ctx, "second", time.Now(), nil)

	if e := <-ch; e.Type != "first" {
		t.Fatalf("got %q, want first", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("overflow event %q should have been dropped", e.Type)
	default:
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewBus()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Fatal("cancelled subscription channel must be closed")
	}
	// Publishing to a bus with no live subscribers must not panic.
	b.Publish(ctx, "orphan", time.Now(), nil)
}

func TestBusCloseIsTerminal(t *testing.T) {
	ctx := context.Background()
	b := NewBus()

	ch, _ := b.Subscribe()
	b.Close()

	if _, open := <-ch; open {
		t.Fatal("close must close subscriber channels")
	}
	b.Publish(ctx, "late", time.Now(), nil)
	late, cancel := b.Subscribe()
	defer cancel()
	if _, open := <-late; open {
		t.Fatal("subscribing after close must return a closed channel")
	}
}
