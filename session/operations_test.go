package session

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/mapping"
	"github.com/mobile-next/streamkit/types"
)

// respond scripts the remote's reply, delivered synchronously inside the
// triggering send. The response listener must already be installed at that
// point or the reply is lost.
func respond(f *channel.Fake, trigger, event string, payload interface{}) {
	f.Handle(trigger, func(value json.RawMessage) {
		f.Receive(event, payload)
	})
}

func TestTap_SendsPlayAction(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())
	f.Receive("deviceInfo", types.DeviceInfo{Screen: types.ScreenBounds{Width: 390, Height: 844}})

	respondSuccess(f, func(id string) playbackSuccess {
		return playbackSuccess{Playback: playbackID{ID: id}}
	})

	_, err := s.Tap(types.Pos(0.5, 0.5))
	require.NoError(t, err)

	sent := f.SentTo("playAction")
	require.Len(t, sent, 1)
	payload := sentPlayAction(t, sent[0])
	require.NotNil(t, payload.Action.Coordinates)
	assert.InDelta(t, 194.5, payload.Action.Coordinates.X, 1e-9)
}

func TestTapElement_DefaultsToCenter(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respondSuccess(f, func(id string) playbackSuccess {
		return playbackSuccess{Playback: playbackID{ID: id}}
	})

	_, err := s.TapElement(types.Element{Text: "OK"}, nil)
	require.NoError(t, err)

	payload := sentPlayAction(t, f.SentTo("playAction")[0])
	require.NotNil(t, payload.Action.LocalPosition)
	assert.Equal(t, 0.5, payload.Action.LocalPosition.X)
}

func TestFindElements(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respondSuccess(f, func(id string) playbackSuccess {
		return playbackSuccess{
			Playback: playbackID{ID: id},
			Elements: []mapping.WireElement{{Text: "A"}, {Text: "B"}},
		}
	})

	elements, err := s.FindElements(types.Element{Class: "Button"})
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "A", elements[0].Text)
}

func TestPlayActions_KeypressBurstSkipsSettle(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respondSuccess(f, func(id string) playbackSuccess {
		return playbackSuccess{Playback: playbackID{ID: id}}
	})

	actions := []types.Action{
		{Type: types.ActionKeypress, Key: "a"},
		{Type: types.ActionKeypress, Key: "b"},
		{Type: types.ActionKeypress, Key: "c"},
	}
	require.NoError(t, s.PlayActions(actions, PlayOptions{}))

	assert.Len(t, f.SentTo("playAction"), 3)
	assert.Empty(t, f.SentTo("enablePixelChangeDetection"))
}

func TestPlayActions_StopsOnFirstError(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respondFailure(f, func(id string) playbackFailure {
		return playbackFailure{Playback: playbackID{ID: id}, ErrorID: "internalError"}
	})

	actions := []types.Action{
		{Type: types.ActionKeypress, Key: "a"},
		{Type: types.ActionKeypress, Key: "b"},
	}
	err := s.PlayActions(actions, PlayOptions{})
	require.Error(t, err)
	assert.Len(t, f.SentTo("playAction"), 1)
}

func TestKeypress_MapsHardwareKeysAndShift(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	require.NoError(t, s.Keypress("VOLUME_UP", false))
	require.NoError(t, s.Keypress("a", true))

	sent := f.SentTo("keypress")
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"key":"volumeUp","shiftKey":0}`, string(sent[0].Value))
	assert.JSONEq(t, `{"key":"a","shiftKey":1}`, string(sent[1].Value))
}

func TestRotate_ValidatesDirection(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	err := s.Rotate("upside-down")
	require.Error(t, err)
	assert.True(t, types.IsOperational(err))
	assert.Empty(t, f.Sent())
}

func TestSimpleSends(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	require.NoError(t, s.SetLanguage("de"))
	require.NoError(t, s.SetLocation(52.52, 13.405))
	require.NoError(t, s.OpenURL("https://example.com"))
	require.NoError(t, s.Shake())
	require.NoError(t, s.ToggleSoftKeyboard())
	require.NoError(t, s.Biometry(true))
	require.NoError(t, s.AllowInteractions(false))
	require.NoError(t, s.Heartbeat())

	assert.JSONEq(t, `{"language":"de"}`, string(f.SentTo("setLanguage")[0].Value))
	assert.JSONEq(t, `{"latitude":52.52,"longitude":13.405}`, string(f.SentTo("setLocation")[0].Value))
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(f.SentTo("openUrl")[0].Value))
	assert.JSONEq(t, `{"match":true}`, string(f.SentTo("biometry")[0].Value))
	assert.JSONEq(t, `{"enabled":false}`, string(f.SentTo("interactions")[0].Value))
	assert.Len(t, f.SentTo("shake"), 1)
	assert.Len(t, f.SentTo("toggleSoftKeyboard"), 1)
	assert.Len(t, f.SentTo("heartbeat"), 1)
}

func TestAdbShellCommand_Preconditions(t *testing.T) {
	f := channel.NewFake()
	ios := newTestSession(f, iosConfig())
	err := ios.AdbShellCommand("pm list packages")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "android")

	noAdb := newTestSession(channel.NewFake(), types.SessionConfig{Platform: types.PlatformAndroid})
	err = noAdb.AdbShellCommand("pm list packages")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enableAdb")

	f2 := channel.NewFake()
	android := newTestSession(f2, types.SessionConfig{Platform: types.PlatformAndroid, EnableAdb: true})
	require.NoError(t, android.AdbShellCommand("pm list packages"))
	assert.JSONEq(t, `{"command":"pm list packages"}`, string(f2.SentTo("adbShellCommand")[0].Value))
}

func TestRestartApp_AwaitsAppLaunch(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respond(f, "restartApp", "appLaunch", map[string]string{"bundle": "com.example.app"})

	require.NoError(t, s.RestartApp())
	assert.Len(t, f.SentTo("restartApp"), 1)
}

func TestReinstallApp_DisconnectWhileWaiting(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	f.Handle("reinstallApp", func(value json.RawMessage) {
		time.AfterFunc(20*time.Millisecond, func() { _ = f.Disconnect() })
	})

	err := s.ReinstallApp()
	var disconnected *types.DisconnectedError
	require.ErrorAs(t, err, &disconnected)
}

func TestScreenshot_DecodesBase64(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	image := []byte{0x89, 'P', 'N', 'G'}
	respond(f, "getScreenshot", "screenshot", screenshotPayload{
		Data:     base64.StdEncoding.EncodeToString(image),
		MimeType: "image/png",
	})

	data, mimeType, err := s.Screenshot()
	require.NoError(t, err)
	assert.Equal(t, image, data)
	assert.Equal(t, "image/png", mimeType)
}

func TestScreenshot_StripsDataURLPrefix(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	image := []byte("jpeg bytes")
	respond(f, "getScreenshot", "screenshot", screenshotPayload{
		Data:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		MimeType: "image/jpeg",
	})

	data, mimeType, err := s.Screenshot()
	require.NoError(t, err)
	assert.Equal(t, image, data)
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestScreenshot_RejectsMalformedPayload(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respond(f, "getScreenshot", "screenshot", screenshotPayload{Data: "%%% not base64 %%%"})

	_, _, err := s.Screenshot()
	require.Error(t, err)
	assert.True(t, types.IsOperational(err))
}

func TestUIDump_MapsElements(t *testing.T) {
	f := channel.NewFake()
	s := newTestSession(f, iosConfig())

	respond(f, "dumpUi", "uiDump", uiDumpPayload{
		Elements: []mapping.WireElement{
			{Text: "OK", IsHidden: "0"},
			{Label: "Cancel"},
		},
	})

	elements, err := s.UIDump()
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "OK", elements[0].Text)
	require.NotNil(t, elements[0].IsHidden)
	assert.False(t, *elements[0].IsHidden)
	assert.Equal(t, "Cancel", elements[1].Label)
}
