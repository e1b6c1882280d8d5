// Package client sits above zero-or-one active session: it listens to the
// queueing/session-assignment channel, creates and destroys sessions as they
// are granted and end, and re-exposes session and queue events to the caller.
package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/session"
	"github.com/mobile-next/streamkit/types"
	"github.com/mobile-next/streamkit/utils"
)

// SessionDialer establishes the per-session channel once the service grants a
// session at the given path.
type SessionDialer func(path, token string) (channel.Channel, error)

// Client routes events from the queueing channel and owns at most one active
// session at a time.
type Client struct {
	ch     channel.Channel
	dial   SessionDialer
	events channel.Emitter

	mu            sync.Mutex
	active        *session.Session
	pendingConfig *types.SessionConfig
	queued        bool
	grantCh       chan *session.Session
	grantErrCh    chan error
	sessionErrCh  chan error

	readyCh   chan struct{}
	readyOnce sync.Once

	routeSub channel.Subscription
}

// New builds a client over an established queueing channel.
func New(ch channel.Channel, dial SessionDialer) *Client {
	c := &Client{
		ch:      ch,
		dial:    dial,
		readyCh: make(chan struct{}),
	}
	c.routeSub = ch.On(channel.Wildcard, c.route)
	return c
}

// On subscribes to the client's public event stream ("session",
// "sessionError", "queue", "queueEnd", "error", "disconnect").
func (c *Client) On(event string, fn channel.Listener) channel.Subscription {
	return c.events.On(event, fn)
}

// Once subscribes for a single public event.
func (c *Client) Once(event string, fn channel.Listener) channel.Subscription {
	return c.events.Once(event, fn)
}

// Off removes a public event subscription.
func (c *Client) Off(sub channel.Subscription) {
	c.events.Off(sub)
}

// Session returns the active session, or nil.
func (c *Client) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

type newSessionPayload struct {
	Path   string               `json:"path"`
	Token  string               `json:"token"`
	Config *types.SessionConfig `json:"config,omitempty"`
}

type queuePayload struct {
	Position int    `json:"position"`
	Name     string `json:"name,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (c *Client) route(msg channel.Message) {
	switch msg.Type {
	case "ready":
		c.readyOnce.Do(func() { close(c.readyCh) })

	case "newSession":
		var payload newSessionPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			utils.Warn("malformed newSession event: %v", err)
			return
		}
		// readiness can take a while; never block the dispatch point
		go c.handleNewSession(payload)

	case "queue", "concurrentQueue":
		c.mu.Lock()
		c.queued = true
		c.mu.Unlock()
		c.emit("queue", msg.Value)

	case "error":
		var payload errorPayload
		_ = json.Unmarshal(msg.Value, &payload)
		if strings.Contains(strings.ToLower(payload.Message), "too many requests") {
			c.failPending(types.NewOperationalError("%s", payload.Message))
		}
		c.emit("error", msg.Value)

	case channel.Disconnect:
		c.failPending(types.NewDisconnectedError("client channel disconnected"))
		c.emit("disconnect", nil)
	}
}

func (c *Client) emit(event string, value json.RawMessage) {
	c.events.Emit(channel.Message{Type: event, Value: value})
}

// handleNewSession constructs the session, waits for base readiness with the
// fast-fail triggers, and reports the outcome as a session or sessionError
// event.
func (c *Client) handleNewSession(payload newSessionPayload) {
	c.mu.Lock()
	wasQueued := c.queued
	c.queued = false
	previous := c.active
	c.active = nil
	config := types.SessionConfig{}
	if payload.Config != nil {
		config = *payload.Config
	} else if c.pendingConfig != nil {
		config = *c.pendingConfig
	}
	c.mu.Unlock()

	// client-level failures only abort the establishment they overlap with;
	// the registration lives exactly as long as this call
	clientErrCh := make(chan error, 1)
	c.mu.Lock()
	c.sessionErrCh = clientErrCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.sessionErrCh == clientErrCh {
			c.sessionErrCh = nil
		}
		c.mu.Unlock()
	}()

	if wasQueued {
		c.emit("queueEnd", nil)
	}
	if previous != nil {
		_ = previous.End()
	}

	sessionCh, err := c.dial(payload.Path, payload.Token)
	if err != nil {
		c.reportSessionError(types.NewOperationalError("failed to open session channel: %v", err))
		return
	}

	s := session.New(sessionCh, payload.Path, payload.Token, config)

	readyErr := make(chan error, 1)
	go func() {
		readyErr <- s.WaitUntilReady(context.Background())
	}()

	select {
	case err := <-readyErr:
		if err != nil {
			_ = s.End()
			c.reportSessionError(err)
			return
		}
	case err := <-clientErrCh:
		_ = s.End()
		c.reportSessionError(err)
		return
	}

	c.mu.Lock()
	c.active = s
	grantCh := c.grantCh
	c.mu.Unlock()

	if grantCh != nil {
		select {
		case grantCh <- s:
		default:
		}
	}
	c.emit("session", mustMarshal(map[string]string{"path": s.Path}))
}

func (c *Client) reportSessionError(err error) {
	c.mu.Lock()
	grantErrCh := c.grantErrCh
	c.mu.Unlock()

	if grantErrCh != nil {
		select {
		case grantErrCh <- err:
		default:
		}
	}
	c.emit("sessionError", mustMarshal(map[string]string{"message": err.Error()}))
}

// failPending feeds a client-level failure to the in-flight session
// establishment, if any. Failures with nothing in flight are dropped rather
// than latched against a future grant.
func (c *Client) failPending(err error) {
	c.mu.Lock()
	ch := c.sessionErrCh
	c.mu.Unlock()

	if ch != nil {
		select {
		case ch <- err:
		default:
		}
	}
}

// StartSession requests a session from the service: it waits for client
// readiness, ends any existing session, pushes the config delta, then races
// the grant against the request send.
func (c *Client) StartSession(ctx context.Context, config *types.SessionConfig) (*session.Session, error) {
	select {
	case <-c.readyCh:
	case <-ctx.Done():
		return nil, types.NewOperationalError("wait for client readiness canceled: %v", ctx.Err())
	}

	c.mu.Lock()
	previous := c.active
	c.active = nil
	c.pendingConfig = config
	grantCh := make(chan *session.Session, 1)
	grantErrCh := make(chan error, 1)
	c.grantCh = grantCh
	c.grantErrCh = grantErrCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.grantCh = nil
		c.grantErrCh = nil
		c.mu.Unlock()
	}()

	if previous != nil {
		if err := previous.End(); err != nil {
			utils.Verbose("failed to end previous session: %v", err)
		}
	}

	if config != nil {
		if err := c.ch.Send("updateConfig", config); err != nil {
			return nil, err
		}
	}

	if err := c.ch.Send("requestSession", nil); err != nil {
		return nil, err
	}

	select {
	case s := <-grantCh:
		return s, nil
	case err := <-grantErrCh:
		return nil, err
	case <-ctx.Done():
		return nil, types.NewOperationalError("wait for session grant canceled: %v", ctx.Err())
	}
}

// Close ends any active session and disconnects the queueing channel.
func (c *Client) Close() error {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()

	if active != nil {
		_ = active.End()
	}
	c.ch.Off(c.routeSub)
	return c.ch.Disconnect()
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
