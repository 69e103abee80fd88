package outbox

import "context"

// Event is a named domain event, e.g. checkout.completed.
type Event interface {
	EventName() string
}

// Identified events carry a stable ID that survives relays and retries.
type Identified interface {
	Event
	ID() string
}

type Handler func(ctx context.Context, e Event) error

// Publisher hands events to the in-process bus.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers by event name. Handlers run off the request path.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
