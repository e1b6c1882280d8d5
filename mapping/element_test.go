package mapping

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobile-next/streamkit/types"
)

func boolPtr(b bool) *bool { return &b }

func TestMapElement_IOSBooleansAsStrings(t *testing.T) {
	m := New(types.PlatformIOS, types.ScreenBounds{Width: 390, Height: 844})

	wire := m.MapElement(types.Element{
		Label:                  "Submit",
		UserInteractionEnabled: boolPtr(true),
		IsHidden:               boolPtr(false),
	})

	assert.Equal(t, "1", wire.UserInteractionEnabled)
	assert.Equal(t, "0", wire.IsHidden)
	assert.Equal(t, "Submit", wire.Label)
}

func TestMapElement_AndroidBooleansStayBooleans(t *testing.T) {
	m := New(types.PlatformAndroid, types.ScreenBounds{Width: 400, Height: 800})

	wire := m.MapElement(types.Element{
		UserInteractionEnabled: boolPtr(true),
		IsHidden:               boolPtr(false),
	})

	assert.Equal(t, true, wire.UserInteractionEnabled)
	assert.Equal(t, false, wire.IsHidden)
}

func TestMapElement_NilBooleansOmitted(t *testing.T) {
	m := New(types.PlatformIOS, types.ScreenBounds{Width: 390, Height: 844})

	wire := m.MapElement(types.Element{Text: "hello"})
	assert.Nil(t, wire.UserInteractionEnabled)
	assert.Nil(t, wire.IsHidden)
}

func TestMapElement_AndroidBoundsToPixels(t *testing.T) {
	bounds := types.ScreenBounds{Width: 400, Height: 800, DevicePixelRatio: 2}
	m := New(types.PlatformAndroid, bounds)

	wire := m.MapElement(types.Element{
		Bounds: &types.ElementBounds{X: 10, Y: 20, Width: 100, Height: 50},
	})

	require.NotNil(t, wire.Bounds)
	assert.Equal(t, WireNumber(20), wire.Bounds.X)
	assert.Equal(t, WireNumber(40), wire.Bounds.Y)
	assert.Equal(t, WireNumber(200), wire.Bounds.Width)
	assert.Equal(t, WireNumber(100), wire.Bounds.Height)
}

func TestMapElement_DropsAccessibilityOutbound(t *testing.T) {
	m := New(types.PlatformIOS, types.ScreenBounds{Width: 390, Height: 844})

	wire := m.MapElement(types.Element{
		Label:         "container",
		Accessibility: []types.Element{{Label: "child"}},
	})
	assert.Empty(t, wire.Accessibility)
}

func TestUnmapElement_RoundTrip(t *testing.T) {
	bounds := types.ScreenBounds{Width: 411, Height: 731, DevicePixelRatio: 2.625}
	m := New(types.PlatformAndroid, bounds)

	original := types.Element{
		Text:                   "OK",
		Identifier:             "okButton",
		ResourceID:             "com.example:id/ok",
		Class:                  "android.widget.Button",
		UserInteractionEnabled: boolPtr(true),
		IsHidden:               boolPtr(false),
		Bounds:                 &types.ElementBounds{X: 8, Y: 16, Width: 120, Height: 48},
	}

	back := m.UnmapElement(m.MapElement(original))

	assert.Equal(t, original.Text, back.Text)
	assert.Equal(t, original.Identifier, back.Identifier)
	assert.Equal(t, original.ResourceID, back.ResourceID)
	assert.Equal(t, original.Class, back.Class)
	require.NotNil(t, back.UserInteractionEnabled)
	assert.True(t, *back.UserInteractionEnabled)
	require.NotNil(t, back.IsHidden)
	assert.False(t, *back.IsHidden)
	require.NotNil(t, back.Bounds)
	assert.InDelta(t, 8, back.Bounds.X, 1e-9)
	assert.InDelta(t, 120, back.Bounds.Width, 1e-9)
}

func TestUnmapElement_KeepsAccessibilityInbound(t *testing.T) {
	m := New(types.PlatformIOS, types.ScreenBounds{Width: 390, Height: 844})

	el := m.UnmapElement(WireElement{
		Label: "container",
		Accessibility: []WireElement{
			{Label: "child", IsHidden: "0"},
		},
	})

	require.Len(t, el.Accessibility, 1)
	assert.Equal(t, "child", el.Accessibility[0].Label)
	require.NotNil(t, el.Accessibility[0].IsHidden)
	assert.False(t, *el.Accessibility[0].IsHidden)
}

func TestWireNumber_InfinityEncoding(t *testing.T) {
	data, err := json.Marshal(WireBounds{
		X:      WireNumber(math.Inf(-1)),
		Y:      WireNumber(0),
		Width:  WireNumber(math.Inf(1)),
		Height: WireNumber(42.5),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"-inf","y":0,"width":"inf","height":42.5}`, string(data))

	var back WireBounds
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsInf(float64(back.Width), 1))
	assert.True(t, math.IsInf(float64(back.X), -1))
	assert.Equal(t, WireNumber(42.5), back.Height)
}

func TestWireNumber_NumericStrings(t *testing.T) {
	var n WireNumber
	require.NoError(t, json.Unmarshal([]byte(`"123.5"`), &n))
	assert.Equal(t, WireNumber(123.5), n)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &n))
}

func TestDecodeBool_Dialects(t *testing.T) {
	tests := []struct {
		in   interface{}
		want *bool
	}{
		{true, boolPtr(true)},
		{"1", boolPtr(true)},
		{"0", boolPtr(false)},
		{"true", boolPtr(true)},
		{float64(1), boolPtr(true)},
		{float64(0), boolPtr(false)},
		{nil, nil},
	}
	for _, tt := range tests {
		got := decodeBool(tt.in)
		if tt.want == nil {
			assert.Nil(t, got)
		} else {
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		}
	}
}
