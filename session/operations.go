package session

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/mapping"
	"github.com/mobile-next/streamkit/types"
)

const (
	// rotationSettle covers the window where the remote's rotation event
	// ordering races the visual effect.
	rotationSettle = 1000 * time.Millisecond

	// typePreDelay keeps typing from racing an immediately prior tap;
	// typePostDelay lets the keyboard catch up before the next action.
	typePreDelay  = 1000 * time.Millisecond
	typePostDelay = 500 * time.Millisecond

	// appLaunchTimeout bounds the wait for the appLaunch event after a
	// restart or reinstall.
	appLaunchTimeout = 60 * time.Second

	screenshotTimeout = 30 * time.Second

	// batchSettleTimeout caps the animation-settle wait inserted between
	// batched actions.
	batchSettleTimeout = 2000 * time.Millisecond
)

// PlayAction drives a single action through the dispatcher's
// request/response/retry cycle.
func (s *Session) PlayAction(action types.Action, opts PlayOptions) (*types.PlayActionResult, error) {
	return s.dispatcher.playAction(action, opts, "playAction")
}

// Tap plays a tap at a normalized screen position.
func (s *Session) Tap(pos types.Position) (*types.PlayActionResult, error) {
	return s.dispatcher.playAction(types.Action{Type: types.ActionTap, Position: &pos}, PlayOptions{}, "tap")
}

// TapElement plays a tap on the element matching the selector. A nil local
// position targets the element's center.
func (s *Session) TapElement(selector types.Element, local *types.Position) (*types.PlayActionResult, error) {
	action := types.Action{Type: types.ActionTap, Element: &selector, LocalPosition: local}
	return s.dispatcher.playAction(action, PlayOptions{}, "tap")
}

// Swipe plays a gesture path anchored at a normalized position.
func (s *Session) Swipe(pos types.Position, moves []types.GestureMove, duration time.Duration) (*types.PlayActionResult, error) {
	action := types.Action{
		Type:     types.ActionSwipe,
		Position: &pos,
		Moves:    moves,
		Duration: duration.Seconds(),
	}
	return s.dispatcher.playAction(action, PlayOptions{}, "swipe")
}

// FindElements queries the remote for all elements matching the selector.
func (s *Session) FindElements(selector types.Element) ([]types.Element, error) {
	action := types.Action{Type: types.ActionFindElements, Element: &selector}
	result, err := s.dispatcher.playAction(action, PlayOptions{}, "findElements")
	if err != nil {
		return nil, err
	}
	return result.Elements, nil
}

// PlayActions executes recorded actions in order, inserting a bounded
// animation-settle wait between actions. Keypress bursts are not throttled.
func (s *Session) PlayActions(actions []types.Action, opts PlayOptions) error {
	for i, action := range actions {
		if _, err := s.dispatcher.playAction(action, opts, "playActions"); err != nil {
			return err
		}

		if i+1 < len(actions) {
			bothKeypresses := action.Type == types.ActionKeypress && actions[i+1].Type == types.ActionKeypress
			if !bothKeypresses {
				// best effort; a still-busy screen falls through
				_ = s.WaitForAnimations(WaitForAnimationsOptions{Timeout: batchSettleTimeout})
			}
		}
	}
	return nil
}

// Rotate turns the device screen. Direction is "left" or "right". The fixed
// settle delay absorbs the remote's rotation/frame race.
func (s *Session) Rotate(direction string) error {
	if direction != "left" && direction != "right" {
		return types.NewOperationalError("rotate direction must be \"left\" or \"right\", got %q", direction)
	}
	if err := s.ch.Send("rotate", map[string]string{"direction": direction}); err != nil {
		return err
	}
	time.Sleep(rotationSettle)
	return nil
}

// Type enters text through the device keyboard. The surrounding delays keep
// typing from racing an immediately prior tap.
func (s *Session) Type(text string) error {
	time.Sleep(typePreDelay)
	if err := s.ch.Send("type", map[string]string{"text": text}); err != nil {
		return err
	}
	time.Sleep(typePostDelay)
	return nil
}

// Keypress sends a single key, mapping hardware key names to the remote's
// dialect.
func (s *Session) Keypress(key string, shift bool) error {
	wire, err := s.currentMapper().MapAction(types.Action{
		Type:     types.ActionKeypress,
		Key:      key,
		ShiftKey: shift,
	})
	if err != nil {
		return err
	}
	return s.ch.Send("keypress", map[string]interface{}{
		"key":      wire.Key,
		"shiftKey": wire.ShiftKey,
	})
}

// SetLanguage changes the device language. The app restarts on the remote
// side for the change to apply.
func (s *Session) SetLanguage(language string) error {
	return s.ch.Send("setLanguage", map[string]string{"language": language})
}

// SetLocation overrides the device's reported geolocation.
func (s *Session) SetLocation(latitude, longitude float64) error {
	return s.ch.Send("setLocation", types.Location{Latitude: latitude, Longitude: longitude})
}

// OpenURL opens a URL on the device.
func (s *Session) OpenURL(url string) error {
	return s.ch.Send("openUrl", map[string]string{"url": url})
}

// Shake triggers the shake gesture (iOS).
func (s *Session) Shake() error {
	return s.ch.Send("shake", nil)
}

// ToggleSoftKeyboard shows or hides the software keyboard.
func (s *Session) ToggleSoftKeyboard() error {
	return s.ch.Send("toggleSoftKeyboard", nil)
}

// Biometry answers a pending biometric prompt.
func (s *Session) Biometry(match bool) error {
	return s.ch.Send("biometry", map[string]bool{"match": match})
}

// AllowInteractions enables or disables user input on the stream.
func (s *Session) AllowInteractions(allow bool) error {
	return s.ch.Send("interactions", map[string]bool{"enabled": allow})
}

// RestartApp relaunches the app and waits for it to come up.
func (s *Session) RestartApp() error {
	_, err := s.awaitEvent("appLaunch", appLaunchTimeout, func() error {
		return s.ch.Send("restartApp", nil)
	})
	return err
}

// ReinstallApp reinstalls and relaunches the app.
func (s *Session) ReinstallApp() error {
	_, err := s.awaitEvent("appLaunch", appLaunchTimeout, func() error {
		return s.ch.Send("reinstallApp", nil)
	})
	return err
}

// AdbShellCommand runs a shell command over the Android side channel.
func (s *Session) AdbShellCommand(command string) error {
	config := s.Config()
	if config.Platform != types.PlatformAndroid {
		return types.NewOperationalError("adb shell commands are only available on android sessions")
	}
	if !config.EnableAdb {
		return types.NewOperationalError("adb shell commands require the enableAdb session option")
	}
	return s.ch.Send("adbShellCommand", map[string]string{"command": command})
}

// Heartbeat keeps an otherwise idle session from hitting the inactivity
// countdown.
func (s *Session) Heartbeat() error {
	return s.ch.Send("heartbeat", nil)
}

type screenshotPayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Screenshot captures the current frame. The payload is treated as an opaque
// blob; only the base64 envelope is decoded.
func (s *Session) Screenshot() ([]byte, string, error) {
	value, err := s.awaitEvent("screenshot", screenshotTimeout, func() error {
		return s.ch.Send("getScreenshot", nil)
	})
	if err != nil {
		return nil, "", err
	}

	var payload screenshotPayload
	if err := unmarshalValue(value, &payload); err != nil {
		return nil, "", types.NewOperationalError("malformed screenshot payload: %v", err)
	}

	data := payload.Data
	if idx := strings.Index(data, "base64,"); idx >= 0 {
		data = data[idx+len("base64,"):]
	}
	blob, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", types.NewOperationalError("screenshot payload is not valid base64: %v", err)
	}
	return blob, payload.MimeType, nil
}

type uiDumpPayload struct {
	Elements []mapping.WireElement `json:"elements"`
}

// UIDump fetches the remote UI element tree, mapped to the public shape.
func (s *Session) UIDump() ([]types.Element, error) {
	value, err := s.awaitEvent("uiDump", screenshotTimeout, func() error {
		return s.ch.Send("dumpUi", nil)
	})
	if err != nil {
		return nil, err
	}

	var payload uiDumpPayload
	if err := unmarshalValue(value, &payload); err != nil {
		return nil, types.NewOperationalError("malformed uiDump payload: %v", err)
	}

	m := s.currentMapper()
	elements := make([]types.Element, 0, len(payload.Elements))
	for _, wireEl := range payload.Elements {
		elements = append(elements, m.UnmapElement(wireEl))
	}
	return elements, nil
}

// awaitEvent installs the response listener, runs the send, and waits for a
// single named event. Subscribing before sending means a response delivered
// by the read loop right after the send cannot be lost. The listener always
// detaches on exit, so timed-out waits do not leak subscriptions; a
// disconnect surfaces as a distinct error so callers can tell "gave up" from
// "connection lost".
func (s *Session) awaitEvent(event string, timeout time.Duration, send func() error) ([]byte, error) {
	valueCh := make(chan []byte, 1)
	sub := s.ch.Once(event, func(msg channel.Message) {
		select {
		case valueCh <- msg.Value:
		default:
		}
	})
	defer s.ch.Off(sub)

	if err := send(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case value := <-valueCh:
		return value, nil
	case <-s.disconnectCh:
		return nil, types.NewDisconnectedError("session disconnected while waiting for %s", event)
	case <-timer.C:
		return nil, types.NewTimeoutError("timed out after %v waiting for %s", timeout, event)
	}
}
