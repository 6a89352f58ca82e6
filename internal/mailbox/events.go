package mailbox

import (
	"github.com/Iron-Ham/kepler/internal/event"
)

func (r *Registry) publishSent(dest, length, pending int) {
	if r.bus != nil && r.bus.HasSubscribers(event.TypeMessageSent) {
		r.bus.Publish(event.NewMessageSentEvent(dest, length, pending))
	}
}

func (r *Registry) publishReceived(id, length, pending int) {
	if r.bus != nil && r.bus.HasSubscribers(event.TypeMessageReceived) {
		r.bus.Publish(event.NewMessageReceivedEvent(id, length, pending))
	}
}

func (r *Registry) publishDrained(id, dropped int) {
	if r.bus != nil {
		r.bus.Publish(event.NewMessageDrainedEvent(id, dropped))
	}
}

func (r *Registry) publishFault(op string, id int, detail string) {
	if r.bus != nil {
		r.bus.Publish(event.NewFaultContainedEvent(op, id, detail))
	}
}
