package pool

import (
	"fmt"
	"sync/atomic"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/message"
)

// Pool is a bounded allocator of message buffers. It is safe for concurrent use.
type Pool struct {
	owner    *message.Owner
	capacity int64
	storage  func() *message.Message
	logger   *logging.Logger
	bus      *event.Bus

	outstanding atomic.Int64
	peak        atomic.Int64
	allocations atomic.Uint64
	releases    atomic.Uint64
	exhaustions atomic.Uint64
}

// Stats is a snapshot of pool accounting.
type Stats struct {
	Capacity    int    `json:"capacity" yaml:"capacity"`
	Outstanding int    `json:"outstanding" yaml:"outstanding"`
	Peak        int    `json:"peak" yaml:"peak"`
	Allocations uint64 `json:"allocations" yaml:"allocations"`
	Releases    uint64 `json:"releases" yaml:"releases"`
	Exhaustions uint64 `json:"exhaustions" yaml:"exhaustions"`
}

// New creates a Pool with capacity message.MaxMessages unless overridden.
func New(opts ...Option) *Pool {
	p := &Pool{
		owner:    &message.Owner{},
		capacity: message.MaxMessages,
		storage:  func() *message.Message { return new(message.Message) },
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cap returns the maximum number of outstanding messages.
func (p *Pool) Cap() int {
	return int(p.capacity)
}

// Outstanding returns the number of allocated, not yet released messages.
func (p *Pool) Outstanding() int {
	return int(p.outstanding.Load())
}

// Stats returns a snapshot of the pool counters. Fields are read
// independently and may be mutually inconsistent under concurrent use.
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity:    p.Cap(),
		Outstanding: p.Outstanding(),
		Peak:        int(p.peak.Load()),
		Allocations: p.allocations.Load(),
		Releases:    p.releases.Load(),
		Exhaustions: p.exhaustions.Load(),
	}
}

// Owns reports whether m was allocated from this pool.
func (p *Pool) Owns(m *message.Message) bool {
	return m != nil && m.OwnedBy(p.owner)
}

// Allocate returns a zeroed message and counts it as outstanding.
// It fails with errors.ErrPoolExhausted when the cap is reached or when the
// underlying storage cannot provide a buffer; the two are not distinguished.
func (p *Pool) Allocate() (*message.Message, error) {
	n, ok := p.reserve()
	if !ok {
		p.exhaustions.Add(1)
		p.logger.Warn("pool exhausted", "outstanding", n, "capacity", p.capacity)
		if p.bus != nil {
			p.bus.Publish(event.NewPoolExhaustedEvent(int(n), int(p.capacity)))
		}
		return nil, errors.NewPoolError(errors.OpAllocate, errors.ErrPoolExhausted).
			WithUsage(int(n), int(p.capacity))
	}

	m, fault := p.newMessage()
	if m == nil {
		p.outstanding.Add(-1)
		p.logger.Error("storage allocation failed", "fault", fault)
		if p.bus != nil && fault != "" {
			p.bus.Publish(event.NewFaultContainedEvent(errors.OpAllocate, -1, fault))
		}
		return nil, errors.NewPoolError(errors.OpAllocate, errors.ErrPoolExhausted).
			WithMessage("storage allocation failed")
	}

	m.Bind(p.owner)
	p.allocations.Add(1)
	p.notePeak(n)
	return m, nil
}

// Release returns an owned message to the pool and invalidates the handle.
// A nil handle, a handle from another pool, a queued message, or a message
// that was already released yields errors.ErrInvalidHandle and changes nothing.
func (p *Pool) Release(m *message.Message) error {
	return p.release(m, message.StateOwned, errors.OpRelease)
}

// Reclaim returns a queued message to the pool. The registry calls it once a
// message has been copied out of its queue.
func (p *Pool) Reclaim(m *message.Message) error {
	return p.release(m, message.StateQueued, errors.OpRelease)
}

func (p *Pool) release(m *message.Message, from message.State, op string) error {
	if !p.Owns(m) {
		p.logger.Debug("release of foreign handle rejected")
		return errors.NewPoolError(op, errors.ErrInvalidHandle)
	}
	if !m.Transition(from, message.StateReleased) {
		p.logger.Debug("release rejected", "state", m.State().String(), "want", from.String())
		return errors.NewPoolError(op, errors.ErrInvalidHandle)
	}
	p.outstanding.Add(-1)
	p.releases.Add(1)
	return nil
}

// reserve claims one slot of the budget. It returns the count after the
// claim on success and the observed count on failure.
func (p *Pool) reserve() (int64, bool) {
	for {
		n := p.outstanding.Load()
		if n >= p.capacity {
			return n, false
		}
		if p.outstanding.CompareAndSwap(n, n+1) {
			return n + 1, true
		}
	}
}

func (p *Pool) notePeak(n int64) {
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

// newMessage calls the storage function, converting a panic into a nil
// result and a description of the fault.
func (p *Pool) newMessage() (m *message.Message, fault string) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			fault = fmt.Sprint(r)
		}
	}()
	return p.storage(), ""
}
