package pool

import (
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/message"
)

// Option configures a Pool.
type Option func(*Pool)

// WithCapacity overrides the cap on outstanding messages. Zero or negative
// values are ignored.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = int64(n)
		}
	}
}

// WithLogger attaches a logger. Exhaustion is logged at WARN and storage
// faults at ERROR.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger.WithComponent("pool")
		}
	}
}

// WithBus attaches an event bus. A PoolExhaustedEvent is published for
// every refused allocation.
func WithBus(bus *event.Bus) Option {
	return func(p *Pool) {
		p.bus = bus
	}
}

// WithStorage replaces the function that provides message memory. A nil
// result or a panic is treated as an allocation failure.
func WithStorage(fn func() *message.Message) Option {
	return func(p *Pool) {
		if fn != nil {
			p.storage = fn
		}
	}
}
