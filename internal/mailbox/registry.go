package mailbox

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sys/cpu"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/message"
	"github.com/Iron-Ham/kepler/internal/pool"
)

// slot is one destination: a FIFO of *message.Message and the lock that
// guards it. The pad keeps neighbouring locks off the same cache line.
type slot struct {
	mu sync.Mutex
	q  *queue.Queue
	_  cpu.CacheLinePad
}

// Registry is the array of per-destination queues and the send/recv
// protocol around them.
type Registry struct {
	pool   *pool.Pool
	slots  [message.MaxDestinations]slot
	logger *logging.Logger
	bus    *event.Bus
}

// NewRegistry creates a Registry whose queues hold messages from p.
func NewRegistry(p *pool.Pool, opts ...Option) *Registry {
	r := &Registry{
		pool:   p,
		logger: logging.NopLogger(),
	}
	for i := range r.slots {
		r.slots[i].q = queue.New()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pool returns the pool this registry reclaims buffers into.
func (r *Registry) Pool() *pool.Pool {
	return r.pool
}

// ValidID reports whether id names a destination of the registry.
func ValidID(id int) bool {
	return id >= 0 && id < message.MaxDestinations
}

// Send appends m to the queue of dest and transfers ownership of m to the
// registry. On error nothing is queued and the caller still owns m.
func (r *Registry) Send(dest int, m *message.Message) error {
	if m == nil {
		return errors.NewDeliveryError(errors.OpSend, errors.ErrInvalidMessage)
	}
	if !ValidID(dest) {
		return errors.NewDeliveryError(errors.OpSend, errors.ErrInvalidDestination).WithDestination(dest)
	}
	if !r.pool.Owns(m) {
		return errors.NewDeliveryError(errors.OpSend, errors.ErrInvalidMessage).WithDestination(dest)
	}

	length := int(m.Len)
	pending, err := r.enqueue(dest, m)
	if err != nil {
		r.reportFault(err)
		return err
	}

	if r.logger.Enabled(logging.LevelDebug) {
		r.logger.Debug("message sent", "destination", dest, "len", length, "pending", pending)
	}
	r.publishSent(dest, length, pending)
	return nil
}

func (r *Registry) enqueue(dest int, m *message.Message) (pending int, err error) {
	s := &r.slots[dest]
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := false
	defer func() {
		if rec := recover(); rec != nil {
			if queued {
				m.Transition(message.StateQueued, message.StateOwned)
			}
			pending, err = 0, r.contain(errors.OpSend, dest, rec)
		}
	}()

	if !m.Transition(message.StateOwned, message.StateQueued) {
		return 0, errors.NewDeliveryError(errors.OpSend, errors.ErrInvalidMessage).
			WithDestination(dest).
			WithDetail(m.State())
	}
	queued = true
	s.q.Add(m)
	return s.q.Length(), nil
}

// Recv copies the oldest message queued for id into out, returns the queued
// buffer to the pool and removes it from the queue. It never blocks: an
// empty queue yields errors.ErrQueueEmpty and leaves out untouched.
func (r *Registry) Recv(id int, out *message.Message) error {
	if out == nil {
		return errors.NewDeliveryError(errors.OpRecv, errors.ErrInvalidOutput)
	}
	if !ValidID(id) {
		return errors.NewDeliveryError(errors.OpRecv, errors.ErrInvalidReceiver).WithDestination(id)
	}

	length, pending, err := r.dequeue(id, out)
	if err != nil {
		r.reportFault(err)
		return err
	}

	if r.logger.Enabled(logging.LevelDebug) {
		r.logger.Debug("message received", "destination", id, "len", length, "pending", pending)
	}
	r.publishReceived(id, length, pending)
	return nil
}

func (r *Registry) dequeue(id int, out *message.Message) (length, pending int, err error) {
	s := &r.slots[id]
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			length, pending, err = 0, 0, r.contain(errors.OpRecv, id, rec)
		}
	}()

	if s.q.Length() == 0 {
		return 0, 0, errors.NewDeliveryError(errors.OpRecv, errors.ErrQueueEmpty).WithDestination(id)
	}

	head, _ := s.q.Peek().(*message.Message)
	if err := r.pool.Reclaim(head); err != nil {
		// An undeliverable head is dropped so later messages still flow.
		s.q.Remove()
		return 0, 0, r.contain(errors.OpRecv, id, err)
	}
	head.CopyTo(out)
	s.q.Remove()
	return int(out.Len), s.q.Length(), nil
}

// Pending returns the number of messages queued for id.
func (r *Registry) Pending(id int) (int, error) {
	if !ValidID(id) {
		return 0, errors.NewDeliveryError(errors.OpPending, errors.ErrInvalidReceiver).WithDestination(id)
	}
	s := &r.slots[id]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Length(), nil
}

// Depths returns a snapshot of every queue length, indexed by destination.
// Each queue is read under its own lock; the snapshot as a whole is not atomic.
func (r *Registry) Depths() []int {
	depths := make([]int, message.MaxDestinations)
	for i := range r.slots {
		s := &r.slots[i]
		s.mu.Lock()
		depths[i] = s.q.Length()
		s.mu.Unlock()
	}
	return depths
}

// Drain discards every message queued for id, returning their buffers to
// the pool, and reports how many were dropped.
func (r *Registry) Drain(id int) (int, error) {
	if !ValidID(id) {
		return 0, errors.NewDeliveryError(errors.OpDrain, errors.ErrInvalidReceiver).WithDestination(id)
	}

	dropped, err := r.drain(id)
	if err != nil {
		r.reportFault(err)
		return dropped, err
	}
	if dropped > 0 {
		r.logger.Info("queue drained", "destination", id, "dropped", dropped)
		r.publishDrained(id, dropped)
	}
	return dropped, nil
}

func (r *Registry) drain(id int) (dropped int, err error) {
	s := &r.slots[id]
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = r.contain(errors.OpDrain, id, rec)
		}
	}()

	var stuck int
	for s.q.Length() > 0 {
		m, _ := s.q.Remove().(*message.Message)
		if r.pool.Reclaim(m) != nil {
			stuck++
			continue
		}
		dropped++
	}
	if stuck > 0 {
		return dropped, r.contain(errors.OpDrain, id, fmt.Sprintf("%d queued messages could not be reclaimed", stuck))
	}
	return dropped, nil
}

// contain converts a recovered panic or an unreclaimable queue element into
// an ErrInternal delivery error. It runs with the destination lock held, so
// it must not publish.
func (r *Registry) contain(op string, id int, rec any) error {
	return errors.NewDeliveryError(op, errors.ErrInternal).WithDestination(id).WithDetail(fmt.Sprint(rec))
}

// reportFault logs and publishes contained faults. Other failures are
// ordinary results and are left to the caller.
func (r *Registry) reportFault(err error) {
	var de *errors.DeliveryError
	if !errors.Is(err, errors.ErrInternal) || !errors.As(err, &de) {
		return
	}
	r.logger.WithDestination(de.Destination).Error("fault contained", "op", de.Op, "error", err.Error())
	r.publishFault(de.Op, de.Destination, err.Error())
}
