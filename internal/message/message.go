// Package message defines the fixed-size message exchanged between
// goroutines, the constants that form the compatibility contract, and the
// 256-byte wire layout of a message.
package message

import (
	"sync/atomic"

	"github.com/Iron-Ham/kepler/internal/errors"
)

const (
	// MaxDestinations is the number of destination queues in a registry.
	// Valid identifiers are 0 through MaxDestinations-1.
	MaxDestinations = 254

	// MaxMessages is the default cap on outstanding messages in a pool.
	MaxMessages = 2048

	// PayloadCapacity is the fixed size of a message payload in bytes.
	PayloadCapacity = 255

	// WireSize is the encoded size of a message: one length byte followed
	// by the full payload buffer.
	WireSize = 1 + PayloadCapacity
)

// State is the ownership state of a message handle.
type State uint32

const (
	// StateDetached is the zero value: a caller-owned output slot or a
	// message that never came from a pool.
	StateDetached State = iota
	// StateOwned means the message was allocated and is held by a goroutine.
	StateOwned
	// StateQueued means the message sits in a destination queue.
	StateQueued
	// StateReleased means the message was returned to its pool. The handle
	// must not be used again.
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateOwned:
		return "owned"
	case StateQueued:
		return "queued"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Owner identifies the pool a message was allocated from. Only its address
// matters.
type Owner struct {
	_ byte
}

// Message is the unit of communication: up to PayloadCapacity bytes with an
// explicit length.
//
// A *Message returned by a pool is a handle. Ownership moves from the
// allocating goroutine to the destination queue on Send, and the buffer
// goes back to the pool on Recv; the receiver only keeps a copy.
//
// Only the bound address is a handle. A value copy (c := *m) is detached:
// it is owned by no pool and cannot change state, so it can never be sent
// or released in place of the handle it was copied from.
type Message struct {
	Len  uint8
	Data [PayloadCapacity]byte

	state uint32
	owner *Owner
	self  *Message
}

// Bind prepares a zeroed message for handing out by owner. It is called by
// pools before the handle escapes, so it needs no synchronization.
func (m *Message) Bind(owner *Owner) {
	m.Len = 0
	m.Data = [PayloadCapacity]byte{}
	m.owner = owner
	m.self = m
	atomic.StoreUint32(&m.state, uint32(StateOwned))
}

// bound reports whether m is the address Bind was called on.
func (m *Message) bound() bool {
	return m.self == m
}

// OwnedBy reports whether m was allocated from owner.
func (m *Message) OwnedBy(owner *Owner) bool {
	return owner != nil && m.bound() && m.owner == owner
}

// State returns the current ownership state. Copies report StateDetached.
func (m *Message) State() State {
	if !m.bound() {
		return StateDetached
	}
	return State(atomic.LoadUint32(&m.state))
}

// Transition atomically moves the message from one state to another and
// reports whether it was in the expected state. It always fails on a copy.
func (m *Message) Transition(from, to State) bool {
	if !m.bound() {
		return false
	}
	return atomic.CompareAndSwapUint32(&m.state, uint32(from), uint32(to))
}

// SetPayload copies p into the message and sets Len. Payloads longer than
// PayloadCapacity are rejected and leave the message unchanged.
func (m *Message) SetPayload(p []byte) error {
	if len(p) > PayloadCapacity {
		return errors.NewValidationError("payload does not fit in message").
			WithField("payload").
			WithValue(len(p)).
			WithCause(errors.ErrPayloadTooLarge)
	}
	n := copy(m.Data[:], p)
	clear(m.Data[n:])
	m.Len = uint8(n)
	return nil
}

// Payload returns the valid bytes of the message. The slice aliases the
// message buffer.
func (m *Message) Payload() []byte {
	return m.Data[:m.Len]
}

// CopyTo copies the length and payload into dst. Ownership state is not
// copied: dst keeps whatever state it had.
func (m *Message) CopyTo(dst *Message) {
	dst.Len = m.Len
	dst.Data = m.Data
}

// Reset zeroes the length and payload.
func (m *Message) Reset() {
	m.Len = 0
	m.Data = [PayloadCapacity]byte{}
}
