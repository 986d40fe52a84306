package talespin

import (
	"context"
)

type (
	// Client is the surface callers drive a session through: opening the transport,
	// sending intents, observing events and tearing everything down.
	Client interface {
		// Open starts connecting to the server
		Open(ctx context.Context) error
		// Send transmits an intent, or queues it until the transport opens
		Send(i Intent)
		// AddHandler registers an inbound event observer
		AddHandler(h Handler) Subscription
		// OnDisconnect installs the callback fired after every transport replacement
		OnDisconnect(cb func())
		// Close closes the transport and stops reconnecting
		Close()
		// CloseChan returns a channel that signals when the session is closed
		CloseChan() CloseChan
	}

	// Handler observes decoded inbound events.
	Handler func(Event)

	// LifecycleHandler observes transport lifecycle changes.
	LifecycleHandler func(LifecycleEvent)
)

// Subscription revokes one registration.
type Subscription struct {
	cancel func() bool
}

// Unsubscribe removes the registration. It reports whether it was still active.
func (s Subscription) Unsubscribe() bool {
	if s.cancel == nil {
		return false
	}
	return s.cancel()
}
