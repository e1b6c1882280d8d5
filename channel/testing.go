package channel

import (
	"encoding/json"
	"fmt"
	"sync"
)

// SentMessage records one outbound event observed by a Fake.
type SentMessage struct {
	Event string
	Value json.RawMessage
}

// Fake is an in-memory Channel for tests. Outbound sends are recorded and may
// trigger scripted handlers; inbound events are injected with Receive.
type Fake struct {
	Emitter

	mu           sync.Mutex
	sent         []SentMessage
	handlers     map[string]func(value json.RawMessage)
	disconnected bool
}

func NewFake() *Fake {
	return &Fake{handlers: make(map[string]func(value json.RawMessage))}
}

// Handle scripts the remote side's reaction to an outbound event. The handler
// runs synchronously inside Send, after the message is recorded.
func (f *Fake) Handle(event string, fn func(value json.RawMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *Fake) Send(event string, payload interface{}) error {
	f.mu.Lock()
	if f.disconnected {
		f.mu.Unlock()
		return fmt.Errorf("channel is disconnected")
	}

	var value json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		value = data
	}
	f.sent = append(f.sent, SentMessage{Event: event, Value: value})
	handler := f.handlers[event]
	f.mu.Unlock()

	if handler != nil {
		handler(value)
	}
	return nil
}

// Receive injects an inbound event as if it arrived from the remote.
func (f *Fake) Receive(event string, payload interface{}) {
	var value json.RawMessage
	if payload != nil {
		value, _ = json.Marshal(payload)
	}
	f.Emit(Message{Type: event, Value: value})
}

// Disconnect marks the channel closed and fires the Disconnect event, like
// the websocket transport does.
func (f *Fake) Disconnect() error {
	f.mu.Lock()
	already := f.disconnected
	f.disconnected = true
	f.mu.Unlock()

	if !already {
		f.Emit(Message{Type: Disconnect})
	}
	return nil
}

// Sent returns a copy of all recorded outbound messages.
func (f *Fake) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// SentTo returns the outbound messages for one event name.
func (f *Fake) SentTo(event string) []SentMessage {
	var out []SentMessage
	for _, m := range f.Sent() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}
