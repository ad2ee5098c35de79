package event

import "sync"

// Listener receives events. Listeners run on the emitting goroutine and
// must return promptly; slow consumers should hand off to their own
// channel or goroutine.
type Listener func(Event)

// Emitter fans events out to subscribed listeners.
// A nil *Emitter is valid and drops all events, so callers can emit
// unconditionally.
type Emitter struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewEmitter creates an emitter with the given initial listeners.
func NewEmitter(listeners ...Listener) *Emitter {
	e := &Emitter{}
	for _, l := range listeners {
		e.Subscribe(l)
	}
	return e
}

// Subscribe registers a listener for all subsequent events.
// Nil listeners are ignored.
func (e *Emitter) Subscribe(l Listener) {
	if e == nil || l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Emit delivers the event to every listener in subscription order.
func (e *Emitter) Emit(evt Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}

// Len returns the number of subscribed listeners.
func (e *Emitter) Len() int {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
