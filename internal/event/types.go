package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "message.sent", "pool.exhausted")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeMessageSent     = "message.sent"
	TypeMessageReceived = "message.received"
	TypeMessageDrained  = "message.drained"
	TypePoolExhausted   = "pool.exhausted"
	TypeFaultContained  = "fault.contained"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Delivery Events
// -----------------------------------------------------------------------------

// MessageSentEvent is emitted after a message has been appended to a
// destination queue.
type MessageSentEvent struct {
	baseEvent
	Destination int // Destination identifier
	Length      int // Valid payload bytes
	Pending     int // Queue length after the append
}

// NewMessageSentEvent creates a MessageSentEvent.
func NewMessageSentEvent(destination, length, pending int) MessageSentEvent {
	return MessageSentEvent{
		baseEvent:   newBaseEvent(TypeMessageSent),
		Destination: destination,
		Length:      length,
		Pending:     pending,
	}
}

// MessageReceivedEvent is emitted after a message has been copied out of a
// destination queue and its buffer returned to the pool.
type MessageReceivedEvent struct {
	baseEvent
	Destination int
	Length      int
	Pending     int // Queue length after the removal
}

// NewMessageReceivedEvent creates a MessageReceivedEvent.
func NewMessageReceivedEvent(destination, length, pending int) MessageReceivedEvent {
	return MessageReceivedEvent{
		baseEvent:   newBaseEvent(TypeMessageReceived),
		Destination: destination,
		Length:      length,
		Pending:     pending,
	}
}

// MessageDrainedEvent is emitted when a destination queue is discarded.
type MessageDrainedEvent struct {
	baseEvent
	Destination int
	Dropped     int
}

// NewMessageDrainedEvent creates a MessageDrainedEvent.
func NewMessageDrainedEvent(destination, dropped int) MessageDrainedEvent {
	return MessageDrainedEvent{
		baseEvent:   newBaseEvent(TypeMessageDrained),
		Destination: destination,
		Dropped:     dropped,
	}
}

// -----------------------------------------------------------------------------
// Pool Events
// -----------------------------------------------------------------------------

// PoolExhaustedEvent is emitted when an allocation is refused.
type PoolExhaustedEvent struct {
	baseEvent
	Outstanding int
	Capacity    int
}

// NewPoolExhaustedEvent creates a PoolExhaustedEvent.
func NewPoolExhaustedEvent(outstanding, capacity int) PoolExhaustedEvent {
	return PoolExhaustedEvent{
		baseEvent:   newBaseEvent(TypePoolExhausted),
		Outstanding: outstanding,
		Capacity:    capacity,
	}
}

// -----------------------------------------------------------------------------
// Fault Events
// -----------------------------------------------------------------------------

// FaultContainedEvent is emitted when an unexpected panic was recovered at
// the API boundary and converted into an error.
type FaultContainedEvent struct {
	baseEvent
	Op          string // Operation that faulted (send, recv, allocate)
	Destination int    // -1 when not applicable
	Detail      string // Recovered panic value
}

// NewFaultContainedEvent creates a FaultContainedEvent.
func NewFaultContainedEvent(op string, destination int, detail string) FaultContainedEvent {
	return FaultContainedEvent{
		baseEvent:   newBaseEvent(TypeFaultContained),
		Op:          op,
		Destination: destination,
		Detail:      detail,
	}
}
