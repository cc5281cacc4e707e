package provider

import (
	"fmt"
	"sync"
)

// Emitter is a concurrency-safe EventSource for handle implementations.
// Listeners run synchronously on the goroutine calling Emit, in the order
// they were added. Adding the same listener twice is a no-op.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[Event][]Listener
	closed    bool
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[Event][]Listener)}
}

// On registers l for event.
func (e *Emitter) On(event Event, l Listener) error {
	if l == nil {
		return fmt.Errorf("nil listener for %s", event)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("emitter closed")
	}
	for _, existing := range e.listeners[event] {
		if existing == l {
			return nil
		}
	}
	e.listeners[event] = append(e.listeners[event], l)
	return nil
}

// Off removes l from event. Removing an unknown listener is a no-op.
func (e *Emitter) Off(event Event, l Listener) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.listeners[event]
	for i, existing := range current {
		if existing == l {
			next := make([]Listener, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			e.listeners[event] = next
			return nil
		}
	}
	return nil
}

// Emit delivers payload to every listener of event and returns how many
// listeners were called.
func (e *Emitter) Emit(event Event, payload any) int {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, l := range listeners {
		l.Handle(payload)
	}
	return len(listeners)
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter) ListenerCount(event Event) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}

// Close drops every listener and rejects new ones.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.listeners = make(map[Event][]Listener)
}

// ListenerFunc adapts a function to Listener. Function values are not
// comparable, so a ListenerFunc must be registered through a pointer:
//
//	l := &provider.ListenerFunc{Fn: func(p any) { ... }}
type ListenerFunc struct {
	Fn func(payload any)
}

// Handle calls f.Fn.
func (f *ListenerFunc) Handle(payload any) { f.Fn(payload) }

var _ EventSource = (*Emitter)(nil)
