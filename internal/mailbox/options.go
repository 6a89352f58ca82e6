package mailbox

import (
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a logger. Deliveries are logged at DEBUG and contained
// faults at ERROR.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.WithComponent("mailbox")
		}
	}
}

// WithBus attaches an event bus. Delivery events are published after the
// destination lock has been released.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}
