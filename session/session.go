// Package session owns one logical connection to a running remote device
// instance: its readiness lifecycle, device info, side-channel details, and
// the high-level operations that drive input actions through the action
// dispatcher.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/mapping"
	"github.com/mobile-next/streamkit/types"
	"github.com/mobile-next/streamkit/utils"
)

const (
	// readyTimeout bounds the hard wait for the ready event.
	readyTimeout = 180 * time.Second

	// dependentFieldTimeout bounds the soft wait for fields that populate
	// shortly after readiness (network inspector URL, adb info). Expiry is
	// not fatal.
	dependentFieldTimeout = 3 * time.Second

	dependentFieldPoll = 50 * time.Millisecond
)

// Session is one logical device session. It is created when the remote
// announces a new session and becomes terminally disconnected when the
// channel closes or the caller ends it; instances are never reused.
type Session struct {
	Path  string
	Token string

	ch         channel.Channel
	dispatcher *dispatcher
	events     channel.Emitter
	anims      *pixelDetection

	mu               sync.Mutex
	config           types.SessionConfig
	mapper           *mapping.Mapper
	device           types.DeviceInfo
	adb              *types.AdbConnection
	inspectorURL     string
	ready            bool
	countdownWarning bool
	endingManually   bool
	disconnected     bool

	routeSub     channel.Subscription
	readyCh      chan struct{}
	readyOnce    sync.Once
	disconnectCh chan struct{}
	discOnce     sync.Once
}

// New builds a session over an already-established channel and installs its
// event route. The caller usually awaits WaitUntilReady next.
func New(ch channel.Channel, path, token string, config types.SessionConfig) *Session {
	s := &Session{
		Path:         path,
		Token:        token,
		ch:           ch,
		config:       config,
		mapper:       mapping.New(config.Platform, types.ScreenBounds{}),
		readyCh:      make(chan struct{}),
		disconnectCh: make(chan struct{}),
	}
	s.anims = &pixelDetection{ch: ch}
	s.dispatcher = newDispatcher(ch, s.currentMapper, func() bool { return s.Config().Record }, config.Debug)
	s.routeSub = ch.On(channel.Wildcard, s.route)
	return s
}

// On subscribes to the session's public event stream.
func (s *Session) On(event string, fn channel.Listener) channel.Subscription {
	return s.events.On(event, fn)
}

// Once subscribes for a single public event.
func (s *Session) Once(event string, fn channel.Listener) channel.Subscription {
	return s.events.Once(event, fn)
}

// Off removes a public event subscription.
func (s *Session) Off(sub channel.Subscription) {
	s.events.Off(sub)
}

// route is the single dispatch point for inbound channel events. Unknown
// event names are a no-op.
func (s *Session) route(msg channel.Message) {
	switch msg.Type {
	case "ready":
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.readyCh) })
		s.emit("ready", msg.Value)

	case "deviceInfo":
		var info types.DeviceInfo
		if err := unmarshalValue(msg.Value, &info); err != nil {
			utils.Warn("malformed deviceInfo event: %v", err)
			return
		}
		s.mu.Lock()
		s.device = info
		s.mapper = mapping.New(s.config.Platform, info.Screen)
		s.mu.Unlock()
		s.emit("deviceInfo", msg.Value)

	case "adbOverTcp":
		var adb types.AdbConnection
		if err := unmarshalValue(msg.Value, &adb); err != nil {
			utils.Warn("malformed adbOverTcp event: %v", err)
			return
		}
		s.mu.Lock()
		s.adb = &adb
		s.mu.Unlock()
		s.emit("adbConnection", mustMarshal(map[string]string{"command": adb.ShellCommand()}))

	case "networkInspectorUrl":
		var url string
		if err := unmarshalValue(msg.Value, &url); err != nil {
			return
		}
		s.mu.Lock()
		s.inspectorURL = url
		s.mu.Unlock()
		s.emit("networkInspectorUrl", msg.Value)

	case "countdownWarning":
		s.mu.Lock()
		s.countdownWarning = true
		s.mu.Unlock()
		s.emit("countdownWarning", msg.Value)

	case "timeoutReset":
		s.mu.Lock()
		s.countdownWarning = false
		s.mu.Unlock()
		s.emit("timeoutReset", msg.Value)

	case "config":
		var config types.SessionConfig
		if err := unmarshalValue(msg.Value, &config); err != nil {
			utils.Warn("malformed config event: %v", err)
			return
		}
		s.mu.Lock()
		s.config = config
		s.mu.Unlock()
		s.emit("config", msg.Value)

	case "recordedAction":
		var wire mapping.WireAction
		if err := unmarshalValue(msg.Value, &wire); err != nil {
			utils.Warn("malformed recordedAction event: %v", err)
			return
		}
		action, err := s.currentMapper().UnmapAction(wire)
		if err != nil {
			utils.Warn("could not map recorded action: %v", err)
			return
		}
		s.emit("action", mustMarshal(action))

	case channel.Disconnect:
		s.handleDisconnect()

	default:
		if public, ok := passthroughEvents[msg.Type]; ok {
			s.emit(public, msg.Value)
		}
	}
}

// passthroughEvents maps wire event names that need no value translation to
// their public names.
var passthroughEvents = map[string]string{
	"screenshot":          "screenshot",
	"uiDump":              "uiDump",
	"appLaunch":           "app",
	"userError":           "error",
	"pixelsChanged":       "pixelsChanged",
	"playbackFoundAndSent": "playbackFoundAndSent",
	"playbackError":       "playbackError",
}

func (s *Session) emit(event string, value json.RawMessage) {
	s.events.Emit(channel.Message{Type: event, Value: value})
}

// handleDisconnect moves the session to its terminal state. The channel
// listener installed at construction is detached, so a stale instance never
// reacts to events delivered to a reused channel.
func (s *Session) handleDisconnect() {
	s.discOnce.Do(func() {
		s.mu.Lock()
		s.disconnected = true
		manual := s.endingManually
		s.mu.Unlock()

		s.ch.Off(s.routeSub)
		close(s.disconnectCh)

		if !manual {
			utils.Warn("session %s disconnected unexpectedly", s.Path)
		}
		s.emit("disconnect", nil)
	})
}

// End terminates the session. Marking the manual-end intent first keeps the
// resulting disconnect from being reported as unexpected.
func (s *Session) End() error {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return nil
	}
	s.endingManually = true
	s.mu.Unlock()

	return s.ch.Disconnect()
}

// WaitUntilReady blocks until the remote reports readiness, then softly waits
// for dependent fields implied by the session config. A disconnect aborts
// immediately instead of waiting out the timeout.
func (s *Session) WaitUntilReady(ctx context.Context) error {
	if err := s.waitBaseReady(ctx); err != nil {
		return err
	}

	config := s.Config()
	if config.Proxy == types.ProxyIntercept {
		s.waitField(ctx, func() bool { return s.NetworkInspectorURL() != "" })
	}
	if config.EnableAdb && config.Platform == types.PlatformAndroid {
		s.waitField(ctx, func() bool { return s.AdbConnection() != nil })
	}
	return nil
}

func (s *Session) waitBaseReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-s.disconnectCh:
		return types.NewDisconnectedError("session %s disconnected before becoming ready", s.Path)
	case <-ctx.Done():
		return types.NewOperationalError("wait for session readiness canceled: %v", ctx.Err())
	case <-time.After(readyTimeout):
		return types.NewTimeoutError("session %s did not become ready within %v", s.Path, readyTimeout)
	}
}

// waitField polls for a dependent field; expiry is non-fatal.
func (s *Session) waitField(ctx context.Context, populated func() bool) {
	deadline := time.Now().Add(dependentFieldTimeout)
	ticker := time.NewTicker(dependentFieldPoll)
	defer ticker.Stop()

	for !populated() {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				return
			}
		case <-s.disconnectCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) currentMapper() *mapping.Mapper {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapper
}

// Config returns the current session config snapshot.
func (s *Session) Config() types.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Device returns the most recent device info reported by the remote.
func (s *Session) Device() types.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// AdbConnection returns the ADB side-channel info, or nil when unreported.
func (s *Session) AdbConnection() *types.AdbConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adb
}

// NetworkInspectorURL returns the inspector URL, or "" when unreported.
func (s *Session) NetworkInspectorURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspectorURL
}

// Ready reports whether the ready event has arrived.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// CountdownWarning reports whether the remote warned about inactivity.
func (s *Session) CountdownWarning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdownWarning
}

// Disconnected reports whether the session reached its terminal state.
func (s *Session) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func unmarshalValue(value json.RawMessage, v interface{}) error {
	if len(value) == 0 {
		return fmt.Errorf("empty event value")
	}
	return json.Unmarshal(value, v)
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
