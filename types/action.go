package types

// ActionType tags the variants of the Action union.
type ActionType string

const (
	ActionTap          ActionType = "tap"
	ActionSwipe        ActionType = "swipe"
	ActionKeypress     ActionType = "keypress"
	ActionFindElements ActionType = "findElements"
)

// GestureMove is one interpolated point of a gesture path. X and Y are
// normalized positions and T is elapsed seconds since gesture start.
type GestureMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// Action is the public shape of a device input action. Tap and swipe target
// exactly one of Position, Coordinates or Element; LocalPosition refines an
// element target and defaults to the element's center.
type Action struct {
	Type          ActionType    `json:"type"`
	Position      *Position     `json:"position,omitempty"`
	Coordinates   *Coordinate   `json:"coordinates,omitempty"`
	Element       *Element      `json:"element,omitempty"`
	LocalPosition *Position     `json:"localPosition,omitempty"`
	Moves         []GestureMove `json:"moves,omitempty"`
	Duration      float64       `json:"duration,omitempty"`
	Key           string        `json:"key,omitempty"`
	ShiftKey      bool          `json:"shiftKey,omitempty"`
}

// PlayActionResult is the remote executor's success response to a playAction
// request, correlated by the opaque request id.
type PlayActionResult struct {
	ID          string      `json:"id"`
	Action      *Action     `json:"action,omitempty"`
	Element     *Element    `json:"element,omitempty"`
	Elements    []Element   `json:"elements,omitempty"`
	Coordinates *Coordinate `json:"coordinates,omitempty"`
}
