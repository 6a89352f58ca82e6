package mailbox

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/message"
	"github.com/Iron-Ham/kepler/internal/pool"
	"github.com/Iron-Ham/kepler/internal/testutil"
)

func newTestRegistry(t *testing.T, opts ...pool.Option) (*Registry, *pool.Pool) {
	t.Helper()
	p := pool.New(opts...)
	return NewRegistry(p), p
}

func TestRegistry_SendRecv(t *testing.T) {
	r, p := newTestRegistry(t)

	m, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	m.Len = 3
	m.Data[0], m.Data[1], m.Data[2] = 'A', 'B', 'C'
	if err := r.Send(0, m); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var out message.Message
	if err := r.Recv(0, &out); err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if out.Len != 3 {
		t.Errorf("Recv() Len = %d, want 3", out.Len)
	}
	if got := string(out.Data[0:3]); got != "ABC" {
		t.Errorf("Recv() Data[0:3] = %q, want %q", got, "ABC")
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestRegistry_SendRecvSequence(t *testing.T) {
	r, p := newTestRegistry(t)

	for _, s := range []string{"A", "B", "C"} {
		if err := r.Send(0, testutil.Allocate(t, p, s)); err != nil {
			t.Fatalf("Send(%q) error = %v", s, err)
		}
	}
	if p.Outstanding() != 3 {
		t.Errorf("Outstanding() = %d, want 3", p.Outstanding())
	}

	var out message.Message
	for _, want := range []string{"A", "B", "C"} {
		if err := r.Recv(0, &out); err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if string(out.Payload()) != want {
			t.Errorf("Recv() payload = %q, want %q", out.Payload(), want)
		}
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0 after all messages received", p.Outstanding())
	}
}

func TestRegistry_RecvCopiesFullBuffer(t *testing.T) {
	r, p := newTestRegistry(t)

	payload := bytes.Repeat([]byte{0xAB}, message.PayloadCapacity)
	m, _ := p.Allocate()
	if err := m.SetPayload(payload); err != nil {
		t.Fatalf("SetPayload() error = %v", err)
	}
	if err := r.Send(9, m); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var out message.Message
	if err := r.Recv(9, &out); err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if int(out.Len) != message.PayloadCapacity || !bytes.Equal(out.Payload(), payload) {
		t.Errorf("Recv() = len %d, want full %d-byte payload", out.Len, message.PayloadCapacity)
	}
	if out.State() != message.StateDetached {
		t.Errorf("output State() = %v, want %v", out.State(), message.StateDetached)
	}
	if m.State() != message.StateReleased {
		t.Errorf("queued buffer State() = %v, want %v", m.State(), message.StateReleased)
	}
}

func TestRegistry_RecvEmpty(t *testing.T) {
	r, _ := newTestRegistry(t)

	out := message.Message{Len: 3, Data: [message.PayloadCapacity]byte{'o', 'l', 'd'}}
	before := out

	err := r.Recv(1, &out)
	if !errors.Is(err, errors.ErrQueueEmpty) {
		t.Fatalf("Recv() on empty queue error = %v, want ErrQueueEmpty", err)
	}
	if out.Len != before.Len || out.Data != before.Data {
		t.Error("Recv() on empty queue modified the output slot")
	}
}

func TestRegistry_FIFOOrder(t *testing.T) {
	r, p := newTestRegistry(t)

	for _, s := range []string{"X", "Y", "Z"} {
		if err := r.Send(2, testutil.Allocate(t, p, s)); err != nil {
			t.Fatalf("Send(%q) error = %v", s, err)
		}
	}

	var got []string
	var out message.Message
	for {
		if err := r.Recv(2, &out); err != nil {
			if !errors.Is(err, errors.ErrQueueEmpty) {
				t.Fatalf("Recv() error = %v", err)
			}
			break
		}
		got = append(got, string(out.Payload()))
	}

	want := []string{"X", "Y", "Z"}
	if len(got) != len(want) {
		t.Fatalf("received %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("received[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_DestinationsAreIndependent(t *testing.T) {
	r, p := newTestRegistry(t)

	if err := r.Send(4, testutil.Allocate(t, p, "four")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := r.Send(5, testutil.Allocate(t, p, "five")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var out message.Message
	if err := r.Recv(5, &out); err != nil || string(out.Payload()) != "five" {
		t.Fatalf("Recv(5) = (%q, %v), want (\"five\", nil)", out.Payload(), err)
	}
	if n, _ := r.Pending(4); n != 1 {
		t.Errorf("Pending(4) = %d, want 1", n)
	}
}

func TestRegistry_SendInvalidDestination(t *testing.T) {
	tests := []struct {
		name string
		dest int
	}{
		{"negative", -1},
		{"max", message.MaxDestinations},
		{"max plus one", message.MaxDestinations + 1},
		{"large", 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p := newTestRegistry(t)
			m := testutil.Allocate(t, p, "A")

			err := r.Send(tt.dest, m)
			if !errors.Is(err, errors.ErrInvalidDestination) {
				t.Fatalf("Send(%d) error = %v, want ErrInvalidDestination", tt.dest, err)
			}
			if m.State() != message.StateOwned {
				t.Errorf("State() = %v, want caller to still own the message", m.State())
			}
			if p.Outstanding() != 1 {
				t.Errorf("Outstanding() = %d, want 1", p.Outstanding())
			}
			for id, depth := range r.Depths() {
				if depth != 0 {
					t.Errorf("queue %d has %d messages after rejected send", id, depth)
				}
			}

			var de *errors.DeliveryError
			if !errors.As(err, &de) || de.Op != errors.OpSend || de.Destination != tt.dest {
				t.Errorf("error = %#v, want DeliveryError{Op: send, Destination: %d}", err, tt.dest)
			}
		})
	}
}

func TestRegistry_BoundaryDestinations(t *testing.T) {
	r, p := newTestRegistry(t)

	for _, id := range []int{0, message.MaxDestinations - 1} {
		if err := r.Send(id, testutil.Allocate(t, p, "edge")); err != nil {
			t.Fatalf("Send(%d) error = %v", id, err)
		}
		var out message.Message
		if err := r.Recv(id, &out); err != nil {
			t.Fatalf("Recv(%d) error = %v", id, err)
		}
	}
}

func TestRegistry_SendInvalidMessage(t *testing.T) {
	r, p := newTestRegistry(t)
	other := pool.New()

	released := testutil.Allocate(t, p, "r")
	if err := p.Release(released); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	queued := testutil.Allocate(t, p, "q")
	if err := r.Send(0, queued); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	foreign := testutil.Allocate(t, other, "f")

	tests := []struct {
		name string
		m    *message.Message
	}{
		{"nil", nil},
		{"detached", &message.Message{}},
		{"released", released},
		{"already queued", queued},
		{"foreign pool", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Send(0, tt.m); !errors.Is(err, errors.ErrInvalidMessage) {
				t.Errorf("Send() error = %v, want ErrInvalidMessage", err)
			}
		})
	}

	if n, _ := r.Pending(0); n != 1 {
		t.Errorf("Pending(0) = %d, want 1", n)
	}
	if other.Outstanding() != 1 {
		t.Errorf("foreign Outstanding() = %d, want 1", other.Outstanding())
	}
}

func TestRegistry_RecvInvalidArguments(t *testing.T) {
	r, p := newTestRegistry(t)
	if err := r.Send(0, testutil.Allocate(t, p, "keep")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var out message.Message
	tests := []struct {
		name string
		id   int
		out  *message.Message
		want error
	}{
		{"negative id", -1, &out, errors.ErrInvalidReceiver},
		{"id at max", message.MaxDestinations, &out, errors.ErrInvalidReceiver},
		{"id 255", 255, &out, errors.ErrInvalidReceiver},
		{"nil output", 0, nil, errors.ErrInvalidOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Recv(tt.id, tt.out); !errors.Is(err, tt.want) {
				t.Errorf("Recv() error = %v, want %v", err, tt.want)
			}
		})
	}

	if n, _ := r.Pending(0); n != 1 {
		t.Errorf("Pending(0) = %d, want 1 after rejected receives", n)
	}
}

func TestRegistry_SendFaultIsContained(t *testing.T) {
	bus := event.NewBus(nil)
	var faults []event.FaultContainedEvent
	bus.Subscribe(event.TypeFaultContained, func(e event.Event) {
		faults = append(faults, e.(event.FaultContainedEvent))
	})

	p := pool.New()
	r := NewRegistry(p, WithBus(bus))
	m := testutil.Allocate(t, p, "A")

	saved := r.slots[3].q
	r.slots[3].q = nil
	err := r.Send(3, m)
	r.slots[3].q = saved

	if !errors.Is(err, errors.ErrInternal) {
		t.Fatalf("Send() error = %v, want ErrInternal", err)
	}
	if m.State() != message.StateOwned {
		t.Errorf("State() = %v, want %v after contained fault", m.State(), message.StateOwned)
	}
	if len(faults) != 1 || faults[0].Op != errors.OpSend || faults[0].Destination != 3 {
		t.Errorf("fault events = %+v, want one send fault on destination 3", faults)
	}

	if err := r.Send(3, m); err != nil {
		t.Errorf("Send() after recovery error = %v", err)
	}
}

func TestRegistry_RecvFaultIsContained(t *testing.T) {
	r, p := newTestRegistry(t)
	m := testutil.Allocate(t, p, "A")
	if err := r.Send(6, m); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := r.Send(6, testutil.Allocate(t, p, "B")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Corrupt the queued message so the pool refuses to reclaim it.
	m.Transition(message.StateQueued, message.StateOwned)

	out := message.Message{Len: 1, Data: [message.PayloadCapacity]byte{'z'}}
	if err := r.Recv(6, &out); !errors.Is(err, errors.ErrInternal) {
		t.Fatalf("Recv() error = %v, want ErrInternal", err)
	}
	if out.Len != 1 || out.Data[0] != 'z' {
		t.Error("Recv() modified the output slot on a contained fault")
	}
	if n, _ := r.Pending(6); n != 1 {
		t.Errorf("Pending(6) = %d, want 1 after the bad head was dropped", n)
	}
	if p.Outstanding() != 2 {
		t.Errorf("Outstanding() = %d, want 2", p.Outstanding())
	}

	if err := r.Recv(6, &out); err != nil {
		t.Fatalf("Recv() after fault error = %v", err)
	}
	testutil.AssertPayload(t, &out, "B")

	if err := p.Release(m); err != nil {
		t.Errorf("Release() of dropped message error = %v", err)
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestRegistry_DrainSkipsUnreclaimable(t *testing.T) {
	r, p := newTestRegistry(t)
	bad := testutil.Allocate(t, p, "x")
	for _, m := range []*message.Message{testutil.Allocate(t, p, "a"), bad, testutil.Allocate(t, p, "b")} {
		if err := r.Send(12, m); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	bad.Transition(message.StateQueued, message.StateOwned)

	dropped, err := r.Drain(12)
	if !errors.Is(err, errors.ErrInternal) {
		t.Fatalf("Drain() error = %v, want ErrInternal", err)
	}
	if dropped != 2 {
		t.Errorf("Drain() dropped = %d, want 2", dropped)
	}
	if n, _ := r.Pending(12); n != 0 {
		t.Errorf("Pending(12) = %d, want 0", n)
	}
	if p.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1", p.Outstanding())
	}
}

func TestRegistry_CopiedHandle(t *testing.T) {
	t.Run("copy is rejected by send", func(t *testing.T) {
		r, p := newTestRegistry(t)
		m := testutil.Allocate(t, p, "ABC")
		clone := *m

		if err := r.Send(0, &clone); !errors.Is(err, errors.ErrInvalidMessage) {
			t.Errorf("Send(copy) error = %v, want ErrInvalidMessage", err)
		}
		if err := r.Send(0, m); err != nil {
			t.Fatalf("Send(original) error = %v", err)
		}
		if err := r.Send(0, &clone); !errors.Is(err, errors.ErrInvalidMessage) {
			t.Errorf("Send(copy) after original error = %v, want ErrInvalidMessage", err)
		}
		if n, _ := r.Pending(0); n != 1 {
			t.Errorf("Pending(0) = %d, want 1", n)
		}
	})

	t.Run("round trip keeps the count in range", func(t *testing.T) {
		r, p := newTestRegistry(t, pool.WithCapacity(1))
		m := testutil.Allocate(t, p, "ABC")
		clone := *m
		_ = r.Send(0, m)
		_ = r.Send(0, &clone)

		var out message.Message
		if err := r.Recv(0, &out); err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if err := r.Recv(0, &out); !errors.Is(err, errors.ErrQueueEmpty) {
			t.Errorf("second Recv() error = %v, want ErrQueueEmpty", err)
		}
		if err := p.Release(&clone); !errors.Is(err, errors.ErrInvalidHandle) {
			t.Errorf("Release(copy) error = %v, want ErrInvalidHandle", err)
		}
		if p.Outstanding() != 0 {
			t.Fatalf("Outstanding() = %d, want 0", p.Outstanding())
		}

		testutil.Allocate(t, p, "x")
		if _, err := p.Allocate(); !errors.Is(err, errors.ErrPoolExhausted) {
			t.Errorf("Allocate() past cap error = %v, want ErrPoolExhausted", err)
		}
	})
}

func TestRegistry_PendingAndDrain(t *testing.T) {
	r, p := newTestRegistry(t)

	for range 5 {
		if err := r.Send(10, testutil.Allocate(t, p, "d")); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if n, err := r.Pending(10); err != nil || n != 5 {
		t.Fatalf("Pending(10) = (%d, %v), want (5, nil)", n, err)
	}
	if depths := r.Depths(); depths[10] != 5 || len(depths) != message.MaxDestinations {
		t.Errorf("Depths()[10] = %d, len %d", depths[10], len(depths))
	}

	dropped, err := r.Drain(10)
	if err != nil || dropped != 5 {
		t.Fatalf("Drain(10) = (%d, %v), want (5, nil)", dropped, err)
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0 after drain", p.Outstanding())
	}
	if n, _ := r.Pending(10); n != 0 {
		t.Errorf("Pending(10) = %d, want 0", n)
	}

	if _, err := r.Pending(-1); !errors.Is(err, errors.ErrInvalidReceiver) {
		t.Errorf("Pending(-1) error = %v, want ErrInvalidReceiver", err)
	}
	if _, err := r.Drain(message.MaxDestinations); !errors.Is(err, errors.ErrInvalidReceiver) {
		t.Errorf("Drain(max) error = %v, want ErrInvalidReceiver", err)
	}
}

func TestRegistry_Events(t *testing.T) {
	bus := event.NewBus(nil)
	rec := testutil.Record(bus)

	p := pool.New()
	r := NewRegistry(p, WithBus(bus))

	if err := r.Send(1, testutil.Allocate(t, p, "a")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := r.Send(1, testutil.Allocate(t, p, "b")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	var out message.Message
	if err := r.Recv(1, &out); err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if _, err := r.Drain(1); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	_ = r.Recv(1, &out)

	got := rec.Types()
	want := []string{
		event.TypeMessageSent,
		event.TypeMessageSent,
		event.TypeMessageReceived,
		event.TypeMessageDrained,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_ConcurrentSameDestination(t *testing.T) {
	const (
		producers = 8
		perProd   = 200
		dest      = 42
	)
	r, p := newTestRegistry(t)

	var wg sync.WaitGroup
	for prod := range producers {
		wg.Go(func() {
			for seq := range perProd {
				m, err := p.Allocate()
				if err != nil {
					t.Errorf("Allocate() error = %v", err)
					return
				}
				_ = m.SetPayload(testutil.Tag(uint16(prod), uint32(seq)))
				if err := r.Send(dest, m); err != nil {
					t.Errorf("Send() error = %v", err)
					return
				}
			}
		})
	}
	wg.Wait()

	lastSeq := make([]int, producers)
	for i := range lastSeq {
		lastSeq[i] = -1
	}
	received := 0
	var out message.Message
	for r.Recv(dest, &out) == nil {
		p16, s32 := testutil.Untag(&out)
		prod, seq := int(p16), int(s32)
		if seq <= lastSeq[prod] {
			t.Errorf("producer %d: seq %d received after %d", prod, seq, lastSeq[prod])
		}
		lastSeq[prod] = seq
		received++
	}

	if received != producers*perProd {
		t.Errorf("received %d messages, want %d", received, producers*perProd)
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestRegistry_ConcurrentReceiversDeliverOnce(t *testing.T) {
	const total = 1000
	r, p := newTestRegistry(t)

	for i := range total {
		m, _ := p.Allocate()
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(i))
		_ = m.SetPayload(buf[:])
		if err := r.Send(7, m); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[uint16]int, total)
	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			var out message.Message
			for r.Recv(7, &out) == nil {
				v := binary.BigEndian.Uint16(out.Data[:2])
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("received %d distinct messages, want %d", len(seen), total)
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("message %d delivered %d times", v, n)
		}
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}
