package testutil

import (
	"testing"

	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/pool"
)

func TestAllocate(t *testing.T) {
	p := pool.New(pool.WithCapacity(4))

	m := Allocate(t, p, "hello")
	AssertPayload(t, m, "hello")
	if p.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1", p.Outstanding())
	}
}

func TestAllocateN_ReleaseAll(t *testing.T) {
	p := pool.New(pool.WithCapacity(4))

	msgs := AllocateN(t, p, 4)
	if p.Outstanding() != 4 {
		t.Errorf("Outstanding() = %d, want 4", p.Outstanding())
	}
	ReleaseAll(t, p, msgs)
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestTagUntag(t *testing.T) {
	p := pool.New()
	m, _ := p.Allocate()
	if err := m.SetPayload(Tag(513, 70000)); err != nil {
		t.Fatalf("SetPayload() error = %v", err)
	}

	producer, seq := Untag(m)
	if producer != 513 || seq != 70000 {
		t.Errorf("Untag() = (%d, %d), want (513, 70000)", producer, seq)
	}
}

func TestRecorder(t *testing.T) {
	bus := event.NewBus(nil)
	rec := Record(bus)

	bus.Publish(event.NewPoolExhaustedEvent(1, 1))
	bus.Publish(event.NewMessageSentEvent(0, 1, 1))
	bus.Publish(event.NewPoolExhaustedEvent(1, 1))

	if got := rec.Count(event.TypePoolExhausted); got != 2 {
		t.Errorf("Count(pool.exhausted) = %d, want 2", got)
	}
	types := rec.Types()
	if len(types) != 3 || types[1] != event.TypeMessageSent {
		t.Errorf("Types() = %v", types)
	}
	if len(rec.Events()) != 3 {
		t.Errorf("Events() length = %d, want 3", len(rec.Events()))
	}
}
