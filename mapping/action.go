package mapping

import (
	"github.com/mobile-next/streamkit/types"
)

// WirePoint is a normalized point in the wire dialect, used for local
// positions relative to an element.
type WirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WireMove is one gesture path point with coordinates converted to pixels.
type WireMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// WireAction is the internal wire shape of an action.
type WireAction struct {
	Type          string            `json:"type"`
	Coordinates   *types.Coordinate `json:"coordinates,omitempty"`
	Element       *WireElement      `json:"element,omitempty"`
	LocalPosition *WirePoint        `json:"localPosition,omitempty"`
	Moves         []WireMove        `json:"moves,omitempty"`
	Duration      float64           `json:"duration,omitempty"`
	Key           string            `json:"key,omitempty"`
	ShiftKey      interface{}       `json:"shiftKey,omitempty"`
}

// hardwareKeys maps public hardware key names to the remote executor's
// lower-camel names. Unrecognized keys pass through unchanged.
var hardwareKeys = map[string]string{
	"HOME":        "home",
	"VOLUME_UP":   "volumeUp",
	"VOLUME_DOWN": "volumeDown",
}

var hardwareKeysInverse = func() map[string]string {
	m := make(map[string]string, len(hardwareKeys))
	for k, v := range hardwareKeys {
		m[v] = k
	}
	return m
}()

// MapAction validates a public action and converts it to the wire shape.
// Validation failures are operational errors and are never retried here;
// retry policy belongs to the dispatcher.
func (m *Mapper) MapAction(action types.Action) (WireAction, error) {
	w := WireAction{Type: string(action.Type)}

	switch action.Type {
	case types.ActionTap, types.ActionSwipe:
		if err := m.mapTarget(action, &w); err != nil {
			return WireAction{}, err
		}
		if action.Type == types.ActionSwipe {
			w.Duration = action.Duration
			w.Moves = m.mapMoves(action.Moves)
		}

	case types.ActionKeypress:
		if action.Key == "" {
			return WireAction{}, types.NewOperationalError("keypress action requires a key")
		}
		w.Key = mapKey(action.Key)
		w.ShiftKey = m.encodeShiftKey(action.ShiftKey)

	case types.ActionFindElements:
		if action.Element == nil {
			return WireAction{}, types.NewOperationalError("findElements action requires an element selector")
		}
		el := m.MapElement(*action.Element)
		w.Element = &el

	default:
		return WireAction{}, types.NewOperationalError("unknown action type %q", action.Type)
	}

	return w, nil
}

// mapTarget enforces that exactly one of position, coordinates or element is
// set and converts it to wire coordinates.
func (m *Mapper) mapTarget(action types.Action, w *WireAction) error {
	targets := 0
	if action.Position != nil {
		targets++
	}
	if action.Coordinates != nil {
		targets++
	}
	if action.Element != nil {
		targets++
	}
	if targets != 1 {
		return types.NewOperationalError("%s action requires exactly one of position, coordinates or element, got %d", action.Type, targets)
	}

	switch {
	case action.Position != nil:
		coord, err := m.PercentageToPixel(*action.Position, m.screen)
		if err != nil {
			return err
		}
		w.Coordinates = &coord

	case action.Coordinates != nil:
		if !isFinite(action.Coordinates.X) || !isFinite(action.Coordinates.Y) {
			return types.NewOperationalError("%s action coordinates must be finite numbers", action.Type)
		}
		c := *action.Coordinates
		w.Coordinates = &c

	case action.Element != nil:
		el := m.MapElement(*action.Element)
		w.Element = &el

		local := action.LocalPosition
		if local == nil {
			// default to the element's center
			local = &types.Position{X: types.Fraction(0.5), Y: types.Fraction(0.5)}
		}
		x, err := local.X.Resolve()
		if err != nil {
			return types.NewOperationalError("invalid local position x: %v", err)
		}
		y, err := local.Y.Resolve()
		if err != nil {
			return types.NewOperationalError("invalid local position y: %v", err)
		}
		w.LocalPosition = &WirePoint{X: x, Y: y}
	}

	return nil
}

// mapMoves converts normalized gesture offsets into pixel offsets. Gesture
// moves may run outside [0,1] relative to their anchor, so no range check
// applies here.
func (m *Mapper) mapMoves(moves []types.GestureMove) []WireMove {
	if len(moves) == 0 {
		return nil
	}
	w, h := m.pixelSize(m.screen)
	out := make([]WireMove, 0, len(moves))
	for _, mv := range moves {
		out = append(out, WireMove{
			X: mv.X * axisSpan(w),
			Y: mv.Y * axisSpan(h),
			T: mv.T,
		})
	}
	return out
}

func mapKey(key string) string {
	if mapped, ok := hardwareKeys[key]; ok {
		return mapped
	}
	return key
}

func unmapKey(key string) string {
	if mapped, ok := hardwareKeysInverse[key]; ok {
		return mapped
	}
	return key
}

// encodeShiftKey applies the iOS 0/1 numeric dialect for the shift state.
func (m *Mapper) encodeShiftKey(shift bool) interface{} {
	if m.platform == types.PlatformIOS {
		if shift {
			return 1
		}
		return 0
	}
	if shift {
		return true
	}
	return nil
}

func decodeShiftKey(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t == "1" || t == "true"
	default:
		return false
	}
}

// UnmapAction converts a wire action back to the public shape. It is used
// for recorded-action echoes and playback-error correlation.
func (m *Mapper) UnmapAction(w WireAction) (types.Action, error) {
	action := types.Action{Type: types.ActionType(w.Type)}

	switch action.Type {
	case types.ActionTap, types.ActionSwipe:
		if w.Element != nil {
			el := m.UnmapElement(*w.Element)
			action.Element = &el
			if local := unmapLocalPosition(w); local != nil {
				action.LocalPosition = local
			}
		} else if w.Coordinates != nil {
			pos := m.PixelToPercentage(*w.Coordinates, m.screen)
			action.Position = &pos
		}
		if action.Type == types.ActionSwipe {
			action.Duration = w.Duration
			action.Moves = m.unmapMoves(w.Moves)
		}

	case types.ActionKeypress:
		action.Key = unmapKey(w.Key)
		action.ShiftKey = decodeShiftKey(w.ShiftKey)

	case types.ActionFindElements:
		if w.Element != nil {
			el := m.UnmapElement(*w.Element)
			action.Element = &el
		}

	default:
		return types.Action{}, types.NewOperationalError("unknown recorded action type %q", w.Type)
	}

	return action, nil
}

// unmapLocalPosition reconstructs the element-relative position from the
// played coordinates and the element's wire bounds, when both are present.
func unmapLocalPosition(w WireAction) *types.Position {
	if w.LocalPosition != nil {
		return &types.Position{
			X: types.Fraction(w.LocalPosition.X),
			Y: types.Fraction(w.LocalPosition.Y),
		}
	}
	if w.Coordinates == nil || w.Element == nil || w.Element.Bounds == nil {
		return nil
	}

	b := w.Element.Bounds
	if float64(b.Width) <= 0 || float64(b.Height) <= 0 {
		return nil
	}
	return &types.Position{
		X: types.Fraction((w.Coordinates.X - float64(b.X)) / float64(b.Width)),
		Y: types.Fraction((w.Coordinates.Y - float64(b.Y)) / float64(b.Height)),
	}
}

func (m *Mapper) unmapMoves(moves []WireMove) []types.GestureMove {
	if len(moves) == 0 {
		return nil
	}
	w, h := m.pixelSize(m.screen)
	out := make([]types.GestureMove, 0, len(moves))
	for _, mv := range moves {
		out = append(out, types.GestureMove{
			X: normalize(mv.X, w),
			Y: normalize(mv.Y, h),
			T: mv.T,
		})
	}
	return out
}
