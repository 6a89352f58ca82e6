// Package mailbox provides in-process message delivery between goroutines.
//
// A [Registry] holds one FIFO queue per destination identifier. Identifiers
// are small integers in [0, message.MaxDestinations) and index a fixed
// array directly; there is no map lookup on the hot path. Each queue has its
// own mutex, so traffic to unrelated destinations never contends.
//
// # Architecture
//
//	producer goroutine            Registry                    consumer goroutine
//	------------------            --------                    ------------------
//	m, _ := pool.Allocate()
//	m.SetPayload(...)
//	reg.Send(7, m)   ───────►  slots[7]: [m1 m2 m] ──────►  reg.Recv(7, &out)
//	                           (mutex + eapache/queue)        copies head into out,
//	                                                          returns head to pool
//
// # Ownership
//
// Send moves a handle from the caller into the queue; the caller must not
// touch it afterwards. Recv copies the head message into a caller-owned
// output slot and returns the queued buffer to its pool, so the receiver
// only ever holds a copy. The registry only accepts handles allocated from
// the pool it was built with; a value copy of a handle is rejected.
//
// # Failure Semantics
//
// Every failure leaves queues and pool untouched, with one exception: a
// queued message the pool refuses to reclaim is dropped from the head with
// [errors.ErrInternal], so one bad element cannot block a destination.
// Errors are *errors.DeliveryError values matching one sentinel:
//
//   - [errors.ErrInvalidMessage]: nil, foreign, queued, or released handle
//   - [errors.ErrInvalidDestination] / [errors.ErrInvalidReceiver]: identifier out of range
//   - [errors.ErrInvalidOutput]: nil output slot
//   - [errors.ErrQueueEmpty]: nothing pending; Recv never blocks
//   - [errors.ErrInternal]: a panic or an unreclaimable head contained at the API boundary
//
// # Thread Safety
//
// [Registry] is safe for concurrent use. Concurrent receivers of the same
// destination are serialized by that destination's lock, so each message is
// delivered exactly once and in the order it was sent.
package mailbox
