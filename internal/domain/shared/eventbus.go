package shared

import "context"

// EventBus is the in-process pub/sub surface the bridge's domains talk
// to. Publishing and subscribing are split into their own interfaces so
// a component that only emits events (the order service) or only
// consumes them (cache invalidation) can depend on the narrower one.
type EventBus interface {
	EventPublisher
	EventSubscriber

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// EventPublisher delivers domain events to whoever subscribed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations. Subscribing without
// explicit event types registers the handler for everything its own
// EventTypes() declares.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventHandler processes domain events. EventTypes lists the types the
// handler wants; an empty slice subscribes it to all events.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}
