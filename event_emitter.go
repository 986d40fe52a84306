package talespin

import (
	"sync"
)

type callback[T any] func(T)

// ListenerID identifies one registration so it can be revoked later.
type ListenerID uint64

type listener[V any] struct {
	id ListenerID
	fn callback[V]
}

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to an ordered
// list of callbacks receiving values of type V.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]listener[V]
	nextID    ListenerID
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]listener[V]),
	}
}

// On registers a new listener for the given event. Registering the same function twice
// yields two independent registrations.
func (e *EventEmitterCallback[K, V]) On(event K, fn callback[V]) ListenerID {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.nextID++
	e.listeners[event] = append(e.listeners[event], listener[V]{id: e.nextID, fn: fn})
	return e.nextID
}

// Off removes the registration id for event. It reports whether anything was removed.
func (e *EventEmitterCallback[K, V]) Off(event K, id ListenerID) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	current := e.listeners[event]
	for i, l := range current {
		if l.id != id {
			continue
		}
		next := make([]listener[V], 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		e.listeners[event] = next
		return true
	}
	return false
}

// Emit triggers all listeners registered for the given event synchronously and in
// registration order. Listeners may register or revoke other listeners; such changes
// take effect from the next Emit.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, l := range listeners {
		l.fn(data)
	}
}

// Len returns how many listeners are registered for event.
func (e *EventEmitterCallback[K, V]) Len(event K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return len(e.listeners[event])
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]listener[V])
}
