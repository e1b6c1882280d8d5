package channel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mobile-next/streamkit/utils"
)

// Disconnect is the synthesized event emitted exactly once when the
// underlying connection goes away, whether closed locally or by the remote.
const Disconnect = "disconnect"

// WebSocketChannel is the production Channel implementation over a single
// WebSocket connection.
type WebSocketChannel struct {
	Emitter

	url string

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	closed   bool
	discOnce sync.Once
}

// Dial connects to the streaming service endpoint and starts the read loop.
func Dial(url string, header http.Header) (*WebSocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &WebSocketChannel{url: url, conn: conn}
	go c.readLoop(conn)
	return c, nil
}

func (c *WebSocketChannel) readLoop(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.closed = true
			c.conn = nil
			c.mu.Unlock()
			utils.Verbose("channel %s closed: %v", c.url, err)
			c.emitDisconnect()
			return
		}
		c.Emit(msg)
	}
}

// Send marshals the payload and writes a single event message. Resolution
// only means the message was handed to the transport.
func (c *WebSocketChannel) Send(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("channel is disconnected")
	}

	msg := Message{Type: event}
	if payload != nil {
		value, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		msg.Value = value
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// Disconnect closes the connection. The Disconnect event still fires so
// listeners observe manual and remote closes the same way.
func (c *WebSocketChannel) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), closeDeadline())
		_ = conn.Close()
	}
	c.emitDisconnect()
	return nil
}

func (c *WebSocketChannel) emitDisconnect() {
	c.discOnce.Do(func() {
		c.Emit(Message{Type: Disconnect})
	})
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}
