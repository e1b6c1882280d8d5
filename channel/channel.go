package channel

import (
	"encoding/json"
	"sync"
)

// Wildcard subscribes a listener to every event on a channel.
const Wildcard = "*"

// Message is one named event on the wire.
type Message struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Listener receives inbound messages. Listeners are invoked sequentially in
// arrival order from a single dispatch goroutine per channel; they must not
// block.
type Listener func(msg Message)

// Subscription identifies an installed listener so it can be removed.
type Subscription struct {
	event string
	id    int64
}

// Channel is the abstract bidirectional event-message link to the remote
// device/service. Send only means "handed to the transport", not "processed
// by the remote".
type Channel interface {
	Send(event string, payload interface{}) error
	On(event string, fn Listener) Subscription
	Once(event string, fn Listener) Subscription
	Off(sub Subscription)
	Disconnect() error
}

type listenerEntry struct {
	fn   Listener
	once bool
}

// Emitter is a thread-safe listener registry shared by the Channel
// implementations.
type Emitter struct {
	mu        sync.Mutex
	nextID    int64
	listeners map[string]map[int64]listenerEntry
}

func (e *Emitter) subscribe(event string, fn Listener, once bool) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string]map[int64]listenerEntry)
	}
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[int64]listenerEntry)
	}

	e.nextID++
	e.listeners[event][e.nextID] = listenerEntry{fn: fn, once: once}
	return Subscription{event: event, id: e.nextID}
}

// On installs a listener for the named event, or for every event when the
// event is Wildcard.
func (e *Emitter) On(event string, fn Listener) Subscription {
	return e.subscribe(event, fn, false)
}

// Once installs a listener that is removed after its first invocation.
func (e *Emitter) Once(event string, fn Listener) Subscription {
	return e.subscribe(event, fn, true)
}

// Off removes a previously installed listener. Removing an already-removed
// subscription is a no-op.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m := e.listeners[sub.event]; m != nil {
		delete(m, sub.id)
	}
}

// Emit delivers msg to listeners of msg.Type and to wildcard listeners.
func (e *Emitter) Emit(msg Message) {
	e.mu.Lock()
	var fns []Listener
	for _, event := range []string{msg.Type, Wildcard} {
		for id, entry := range e.listeners[event] {
			fns = append(fns, entry.fn)
			if entry.once {
				delete(e.listeners[event], id)
			}
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// RemoveAllListeners drops every installed listener.
func (e *Emitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}
