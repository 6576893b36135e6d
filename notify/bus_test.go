package notify

import (
	"fmt"
	"sync"
	"testing"
)

type collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *collector) handle(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

func (c *collector) snapshot() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

func TestBusEmitWithoutSubscriberIsNoop(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	bus.Emit("nobody listening", SeverityInfo)

	var c collector
	unsubscribe := bus.Subscribe(c.handle)
	defer unsubscribe()

	if got := len(c.snapshot()); got != 0 {
		t.Fatalf("late subscriber received %d notifications, want 0", got)
	}
}

func TestBusDeliversInEmissionOrder(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var c collector
	unsubscribe := bus.Subscribe(c.handle)
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		bus.Emit(fmt.Sprintf("n-%d", i), SeverityInfo)
	}

	got := c.snapshot()
	if len(got) != 20 {
		t.Fatalf("received %d notifications, want 20", len(got))
	}
	seen := make(map[string]bool)
	for i, n := range got {
		if n.Message != fmt.Sprintf("n-%d", i) {
			t.Fatalf("position %d = %q, want n-%d", i, n.Message, i)
		}
		if n.ID == "" || seen[n.ID] {
			t.Fatalf("notification id %q missing or duplicated", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestBusDuplicatesAreNotCoalesced(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var c collector
	unsubscribe := bus.Subscribe(c.handle)
	defer unsubscribe()

	bus.Emit("same", SeverityError)
	bus.Emit("same", SeverityError)

	if got := len(c.snapshot()); got != 2 {
		t.Fatalf("received %d, want 2", got)
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var c collector
	unsubscribe := bus.Subscribe(c.handle)
	bus.Emit("before", SeveritySuccess)
	unsubscribe()
	unsubscribe()
	bus.Emit("after", SeveritySuccess)

	got := c.snapshot()
	if len(got) != 1 || got[0].Message != "before" {
		t.Fatalf("unexpected deliveries after unsubscribe: %+v", got)
	}
}

func TestBusNewSubscriberReplacesPrevious(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	var first, second collector
	unsubscribeFirst := bus.Subscribe(first.handle)
	unsubscribeSecond := bus.Subscribe(second.handle)
	defer unsubscribeSecond()

	bus.Emit("hello", SeverityWarning)
	unsubscribeFirst()
	bus.Emit("again", SeverityWarning)

	if got := len(first.snapshot()); got != 0 {
		t.Fatalf("replaced subscriber received %d notifications", got)
	}
	if got := len(second.snapshot()); got != 2 {
		t.Fatalf("active subscriber received %d notifications, want 2", got)
	}
}

func TestBusesAreIndependent(t *testing.T) {
	a := NewBus(nil)
	b := NewBus(nil)
	defer a.Close()
	defer b.Close()

	var ca, cb collector
	defer a.Subscribe(ca.handle)()
	defer b.Subscribe(cb.handle)()

	a.Emit("only a", SeverityInfo)

	if len(ca.snapshot()) != 1 || len(cb.snapshot()) != 0 {
		t.Fatalf("cross-bus leak: a=%d b=%d", len(ca.snapshot()), len(cb.snapshot()))
	}
}

func TestBusEmitAfterCloseDoesNotPanic(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	bus.Emit("late", SeverityInfo)
}
