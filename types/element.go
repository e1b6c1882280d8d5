package types

import "strings"

// ElementBounds is an element's rectangle, in device-independent points on
// the public side of the API.
type ElementBounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element describes a UI element on the remote device. The same shape is used
// both as a selector for findElements/element-targeted actions and as a match
// result reported back by the remote executor.
type Element struct {
	Text                   string         `json:"text,omitempty"`
	Identifier             string         `json:"accessibilityIdentifier,omitempty"`
	Label                  string         `json:"accessibilityLabel,omitempty"`
	ResourceID             string         `json:"resourceId,omitempty"`
	Class                  string         `json:"class,omitempty"`
	UserInteractionEnabled *bool          `json:"userInteractionEnabled,omitempty"`
	IsHidden               *bool          `json:"isHidden,omitempty"`
	Bounds                 *ElementBounds `json:"bounds,omitempty"`
	Accessibility          []Element      `json:"accessibilityElements,omitempty"`
}

// String returns a short human-readable description, used when enumerating
// ambiguous matches.
func (e Element) String() string {
	var parts []string
	if e.Class != "" {
		parts = append(parts, e.Class)
	}
	switch {
	case e.Identifier != "":
		parts = append(parts, "id="+e.Identifier)
	case e.ResourceID != "":
		parts = append(parts, "resourceId="+e.ResourceID)
	case e.Text != "":
		parts = append(parts, "text="+e.Text)
	case e.Label != "":
		parts = append(parts, "label="+e.Label)
	}
	if len(parts) == 0 {
		return "element"
	}
	return strings.Join(parts, " ")
}
