// Package event provides a pub-sub event bus for observing the messaging
// facility without coupling to it.
//
// The message pool and the destination registry publish events when a bus
// is attached; the CLI and tests subscribe to count deliveries, watch for
// exhaustion, or surface contained faults.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Delivery:
//   - [MessageSentEvent]: a message was queued for a destination
//   - [MessageReceivedEvent]: a message was copied out and its buffer released
//   - [MessageDrainedEvent]: a destination queue was discarded
//
// Pool:
//   - [PoolExhaustedEvent]: an allocation was refused
//
// Faults:
//   - [FaultContainedEvent]: a panic was recovered at the API boundary
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine, outside of the bus lock, and
// are protected from panics. Publishers call Publish after releasing their
// own locks, so a handler may safely call back into the registry.
package event
