// Package testutil provides testing utilities for kepler tests.
package testutil

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/message"
	"github.com/Iron-Ham/kepler/internal/pool"
)

// Allocate takes a message from p and fills it with payload. The test fails
// if the pool is exhausted or the payload does not fit.
func Allocate(t *testing.T, p *pool.Pool, payload string) *message.Message {
	t.Helper()

	m, err := p.Allocate()
	if err != nil {
		t.Fatalf("failed to allocate message: %v", err)
	}
	if err := m.SetPayload([]byte(payload)); err != nil {
		t.Fatalf("failed to set payload %q: %v", payload, err)
	}
	return m
}

// AllocateN takes n messages from p, leaving them empty.
func AllocateN(t *testing.T, p *pool.Pool, n int) []*message.Message {
	t.Helper()

	msgs := make([]*message.Message, 0, n)
	for i := range n {
		m, err := p.Allocate()
		if err != nil {
			t.Fatalf("allocation %d of %d failed: %v", i+1, n, err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// ReleaseAll returns every message in msgs to p.
func ReleaseAll(t *testing.T, p *pool.Pool, msgs []*message.Message) {
	t.Helper()

	for i, m := range msgs {
		if err := p.Release(m); err != nil {
			t.Fatalf("failed to release message %d: %v", i, err)
		}
	}
}

// AssertPayload fails the test if the valid bytes of m differ from want.
func AssertPayload(t *testing.T, m *message.Message, want string) {
	t.Helper()

	if got := string(m.Payload()); got != want {
		t.Errorf("payload = %q, want %q", got, want)
	}
}

// Tag encodes a producer id and sequence number as a 6-byte payload.
func Tag(producer uint16, seq uint32) []byte {
	var buf [6]byte
	binary.BigEndian.PutUint16(buf[0:2], producer)
	binary.BigEndian.PutUint32(buf[2:6], seq)
	return buf[:]
}

// Untag decodes a payload written by Tag.
func Untag(m *message.Message) (producer uint16, seq uint32) {
	return binary.BigEndian.Uint16(m.Data[0:2]), binary.BigEndian.Uint32(m.Data[2:6])
}

// Recorder collects events published on a bus. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

// Record subscribes a new Recorder to every event on bus.
func Record(bus *event.Bus) *Recorder {
	r := &Recorder{}
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Types returns the types of the recorded events in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType()
	}
	return types
}

// Count returns how many events of eventType were recorded.
func (r *Recorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}
