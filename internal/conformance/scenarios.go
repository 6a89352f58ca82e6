package conformance

import (
	"fmt"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/message"
)

// Scenario names.
const (
	BasicSendReceive   = "basic-send-receive"
	ReceiveEmpty       = "receive-empty"
	FIFOOrder          = "fifo-order"
	PoolExhaustion     = "pool-exhaustion"
	InvalidDestination = "invalid-destination"
)

// Scenarios returns the built-in scenarios in their canonical order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        BasicSendReceive,
			Description: "send one 3-byte message ABC to destination 0 and receive it back",
			Run:         basicSendReceive,
		},
		{
			Name:        ReceiveEmpty,
			Description: "receive from an empty destination fails without touching the output",
			Run:         receiveEmpty,
		},
		{
			Name:        FIFOOrder,
			Description: "X, Y, Z sent to destination 2 arrive in order",
			Run:         fifoOrder,
		},
		{
			Name:        PoolExhaustion,
			Description: "allocation fails once the pool cap is reached and recovers after release",
			Run:         poolExhaustion,
		},
		{
			Name:        InvalidDestination,
			Description: "sending past the last destination is rejected with no effect",
			Run:         invalidDestination,
		},
	}
}

// Lookup returns the scenario called name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Names returns the names of the built-in scenarios.
func Names() []string {
	all := Scenarios()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

func sendPayloads(f *Fixture, dest int, payloads ...string) error {
	for _, p := range payloads {
		m, err := f.Pool.Allocate()
		if err != nil {
			return fmt.Errorf("allocate %q: %w", p, err)
		}
		if err := m.SetPayload([]byte(p)); err != nil {
			_ = f.Pool.Release(m)
			return fmt.Errorf("fill %q: %w", p, err)
		}
		if err := f.Registry.Send(dest, m); err != nil {
			_ = f.Pool.Release(m)
			return fmt.Errorf("send %q to %d: %w", p, dest, err)
		}
	}
	return nil
}

func expectPayloads(f *Fixture, id int, want ...string) error {
	var out message.Message
	for i, w := range want {
		if err := f.Registry.Recv(id, &out); err != nil {
			return fmt.Errorf("recv #%d from %d: %w", i, id, err)
		}
		if got := string(out.Payload()); got != w {
			return fmt.Errorf("recv #%d from %d: got %q, want %q", i, id, got, w)
		}
	}
	return nil
}

func expectOutstanding(f *Fixture, want int) error {
	if got := f.Pool.Outstanding(); got != want {
		return fmt.Errorf("outstanding = %d, want %d", got, want)
	}
	return nil
}

func basicSendReceive(f *Fixture) error {
	m, err := f.Pool.Allocate()
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	m.Len = 3
	m.Data[0], m.Data[1], m.Data[2] = 'A', 'B', 'C'
	if err := f.Registry.Send(0, m); err != nil {
		_ = f.Pool.Release(m)
		return fmt.Errorf("send: %w", err)
	}

	var out message.Message
	if err := f.Registry.Recv(0, &out); err != nil {
		return fmt.Errorf("recv: %w", err)
	}
	if out.Len != 3 {
		return fmt.Errorf("received length = %d, want 3", out.Len)
	}
	if got := string(out.Data[0:3]); got != "ABC" {
		return fmt.Errorf("received bytes = %q, want %q", got, "ABC")
	}
	return expectOutstanding(f, 0)
}

func receiveEmpty(f *Fixture) error {
	out := message.Message{Len: 1}
	out.Data[0] = '?'

	err := f.Registry.Recv(1, &out)
	if !errors.Is(err, errors.ErrQueueEmpty) {
		return fmt.Errorf("recv on empty destination: got %v, want %v", err, errors.ErrQueueEmpty)
	}
	if out.Len != 1 || out.Data[0] != '?' {
		return fmt.Errorf("recv on empty destination modified the output")
	}
	return nil
}

func fifoOrder(f *Fixture) error {
	if err := sendPayloads(f, 2, "X", "Y", "Z"); err != nil {
		return err
	}
	if err := expectPayloads(f, 2, "X", "Y", "Z"); err != nil {
		return err
	}

	var out message.Message
	if err := f.Registry.Recv(2, &out); !errors.Is(err, errors.ErrQueueEmpty) {
		return fmt.Errorf("recv after draining: got %v, want %v", err, errors.ErrQueueEmpty)
	}
	return nil
}

func poolExhaustion(f *Fixture) error {
	capacity := f.Pool.Cap()
	held := make([]*message.Message, 0, capacity)
	defer func() {
		for _, m := range held {
			_ = f.Pool.Release(m)
		}
	}()

	for i := range capacity {
		m, err := f.Pool.Allocate()
		if err != nil {
			return fmt.Errorf("allocation %d of %d failed early: %w", i+1, capacity, err)
		}
		held = append(held, m)
	}

	if m, err := f.Pool.Allocate(); !errors.Is(err, errors.ErrPoolExhausted) || m != nil {
		return fmt.Errorf("allocation past cap: got (%v, %v), want ErrPoolExhausted", m, err)
	}
	if err := expectOutstanding(f, capacity); err != nil {
		return err
	}

	last := held[len(held)-1]
	held = held[:len(held)-1]
	if err := f.Pool.Release(last); err != nil {
		return fmt.Errorf("release: %w", err)
	}

	m, err := f.Pool.Allocate()
	if err != nil {
		return fmt.Errorf("allocation after release: %w", err)
	}
	held = append(held, m)
	return expectOutstanding(f, capacity)
}

func invalidDestination(f *Fixture) error {
	m, err := f.Pool.Allocate()
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	defer func() { _ = f.Pool.Release(m) }()

	if err := m.SetPayload([]byte("A")); err != nil {
		return err
	}

	for _, dest := range []int{message.MaxDestinations + 1, message.MaxDestinations, -1} {
		if err := f.Registry.Send(dest, m); !errors.Is(err, errors.ErrInvalidDestination) {
			return fmt.Errorf("send to %d: got %v, want %v", dest, err, errors.ErrInvalidDestination)
		}
		if m.State() != message.StateOwned {
			return fmt.Errorf("send to %d: message left in state %v", dest, m.State())
		}
	}

	for id, depth := range f.Registry.Depths() {
		if depth != 0 {
			return fmt.Errorf("destination %d holds %d messages after rejected sends", id, depth)
		}
	}
	return expectOutstanding(f, 1)
}
