package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mobile-next/streamkit/types"
)

// WireNumber is a bounds value in the internal wire dialect. iOS encodes
// infinite bounds values as the strings "inf"/"-inf" and may send finite
// values as numeric strings; both forms are accepted on decode and infinities
// are reproduced on encode.
type WireNumber float64

func (n WireNumber) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsInf(f, 1):
		return json.Marshal("inf")
	case math.IsInf(f, -1):
		return json.Marshal("-inf")
	default:
		return json.Marshal(f)
	}
}

func (n *WireNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = WireNumber(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid bounds value %s", string(data))
	}
	switch s {
	case "inf":
		*n = WireNumber(math.Inf(1))
	case "-inf":
		*n = WireNumber(math.Inf(-1))
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid bounds value %q", s)
		}
		*n = WireNumber(f)
	}
	return nil
}

// WireBounds is an element rectangle in wire units (device pixels on
// Android, points on iOS).
type WireBounds struct {
	X      WireNumber `json:"x"`
	Y      WireNumber `json:"y"`
	Width  WireNumber `json:"width"`
	Height WireNumber `json:"height"`
}

// WireElement is the internal wire shape of an element. Boolean attributes
// with iOS semantics travel as "1"/"0" strings on that platform.
type WireElement struct {
	Text                   string        `json:"text,omitempty"`
	Identifier             string        `json:"accessibilityIdentifier,omitempty"`
	Label                  string        `json:"accessibilityLabel,omitempty"`
	ResourceID             string        `json:"resourceId,omitempty"`
	Class                  string        `json:"class,omitempty"`
	UserInteractionEnabled interface{}   `json:"userInteractionEnabled,omitempty"`
	IsHidden               interface{}   `json:"isHidden,omitempty"`
	Bounds                 *WireBounds   `json:"bounds,omitempty"`
	Accessibility          []WireElement `json:"accessibilityElements,omitempty"`
}

// encodeBool applies the platform's boolean dialect.
func (m *Mapper) encodeBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if m.platform == types.PlatformIOS {
		if *b {
			return "1"
		}
		return "0"
	}
	return *b
}

// decodeBool accepts either dialect regardless of platform.
func decodeBool(v interface{}) *bool {
	switch t := v.(type) {
	case bool:
		b := t
		return &b
	case string:
		b := t == "1" || t == "true"
		return &b
	case float64:
		b := t != 0
		return &b
	default:
		return nil
	}
}

// boundsScale is the factor between public device-independent points and wire
// units for element bounds.
func (m *Mapper) boundsScale() float64 {
	if m.platform == types.PlatformAndroid {
		return m.screen.Ratio()
	}
	return 1
}

// MapElement converts a public element to the wire shape. Accessibility
// sub-elements are dropped on the outbound path; the remote executor does not
// need them for replay.
func (m *Mapper) MapElement(el types.Element) WireElement {
	w := WireElement{
		Text:                   el.Text,
		Identifier:             el.Identifier,
		Label:                  el.Label,
		ResourceID:             el.ResourceID,
		Class:                  el.Class,
		UserInteractionEnabled: m.encodeBool(el.UserInteractionEnabled),
		IsHidden:               m.encodeBool(el.IsHidden),
	}
	if el.Bounds != nil {
		scale := m.boundsScale()
		w.Bounds = &WireBounds{
			X:      WireNumber(el.Bounds.X * scale),
			Y:      WireNumber(el.Bounds.Y * scale),
			Width:  WireNumber(el.Bounds.Width * scale),
			Height: WireNumber(el.Bounds.Height * scale),
		}
	}
	return w
}

// UnmapElement converts a wire element back to the public shape, carrying
// accessibility sub-elements through.
func (m *Mapper) UnmapElement(w WireElement) types.Element {
	el := types.Element{
		Text:                   w.Text,
		Identifier:             w.Identifier,
		Label:                  w.Label,
		ResourceID:             w.ResourceID,
		Class:                  w.Class,
		UserInteractionEnabled: decodeBool(w.UserInteractionEnabled),
		IsHidden:               decodeBool(w.IsHidden),
	}
	if w.Bounds != nil {
		scale := m.boundsScale()
		el.Bounds = &types.ElementBounds{
			X:      float64(w.Bounds.X) / scale,
			Y:      float64(w.Bounds.Y) / scale,
			Width:  float64(w.Bounds.Width) / scale,
			Height: float64(w.Bounds.Height) / scale,
		}
	}
	for _, child := range w.Accessibility {
		el.Accessibility = append(el.Accessibility, m.UnmapElement(child))
	}
	return el
}
