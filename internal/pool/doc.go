// Package pool implements the bounded message pool.
//
// A [Pool] hands out zeroed [message.Message] handles and enforces a hard
// cap on how many are outstanding at once. It tracks only the count, not
// which buffers are live; each handle carries its own ownership state, which
// is what makes [Pool.Release] checked rather than trusting.
//
// # Capacity Invariant
//
// The outstanding count is reserved with a compare-and-swap loop before any
// storage is requested, so 0 <= Outstanding() <= Cap() holds under any
// number of concurrent Allocate and Release calls. A failed allocation gives
// its reservation back before returning.
//
// # Buffer Lifetime
//
// Released buffers are not recycled. A handle stays in the released state
// forever, so a second Release of the same handle is always detected instead
// of silently releasing some later owner's buffer.
//
// # Basic Usage
//
//	p := pool.New(pool.WithLogger(logger))
//
//	m, err := p.Allocate()
//	if err != nil {
//	    return err // errors.ErrPoolExhausted
//	}
//	_ = m.SetPayload([]byte("ping"))
//
//	// Either hand it to a registry...
//	err = reg.Send(7, m)
//	// ...or give it back.
//	err = p.Release(m)
package pool
