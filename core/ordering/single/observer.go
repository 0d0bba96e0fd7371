package single

import "github.com/votela/votela/core/ordering"

// observer is a bridge between the watcher of the service and the channel
// returned to the caller.
//
// - implements core.Observer
type observer struct {
	events chan ordering.Event
}

// NotifyCallback implements core.Observer. It pushes the event to the channel.
func (o observer) NotifyCallback(event interface{}) {
	o.events <- event.(ordering.Event)
}
