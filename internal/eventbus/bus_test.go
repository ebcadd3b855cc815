package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/terrasense/agriops/internal/event"
)

// collector gathers dispatched events behind a mutex.
type collector struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *collector) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *collector) snapshot() []event.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := New(16)
	c := &collector{}
	bus.Subscribe("test", c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	first := event.NewRelationshipChanged("S1", "refAgriFarm", "F1")
	second := event.NewDeletionCompleted([]string{"S2"})
	bus.Publish(ctx, first)
	bus.Publish(ctx, second)
	bus.Stop()

	got := c.snapshot()
	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, first.ID, second.ID)
	}
}

func TestBus_AllSubscribersReceive(t *testing.T) {
	bus := New(16)
	a, b := &collector{}, &collector{}
	bus.Subscribe("a", a)
	bus.Subscribe("b", b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	bus.Publish(ctx, event.NewDeletionCompleted([]string{"S1"}))
	bus.Stop()

	if len(a.snapshot()) != 1 || len(b.snapshot()) != 1 {
		t.Errorf("a = %d events, b = %d events, want 1 each",
			len(a.snapshot()), len(b.snapshot()))
	}
}

func TestBus_PublishNeverBlocksWhenFull(t *testing.T) {
	bus := New(1)
	// No Start: the buffer fills and stays full.
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Publish(ctx, event.NewDeletionCompleted([]string{"S1"}))
		bus.Publish(ctx, event.NewDeletionCompleted([]string{"S2"})) // dropped
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := New(16)
	c := &collector{}
	bus.Subscribe("test", c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)
	bus.Stop()

	// A handler finishing an in-flight request during shutdown must not
	// crash the process.
	bus.Publish(ctx, event.NewDeletionCompleted([]string{"S1"}))
	bus.Stop() // second Stop is a no-op

	if len(c.snapshot()) != 0 {
		t.Errorf("delivered %d events after stop, want 0", len(c.snapshot()))
	}
}

func TestBus_DrainsOnCancel(t *testing.T) {
	bus := New(16)
	c := &collector{}
	bus.Subscribe("test", c)

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, event.NewDeletionCompleted([]string{"S1"}))

	bus.Start(ctx)
	cancel()
	bus.Stop()

	if len(c.snapshot()) != 1 {
		t.Errorf("delivered %d events after cancel, want 1", len(c.snapshot()))
	}
}
