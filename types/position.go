package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PositionValue is one axis of a normalized position: either a fraction in
// [0,1] or a percentage string such as "50%".
type PositionValue struct {
	number  float64
	percent string
	isPct   bool
	defined bool
}

// Fraction builds a PositionValue from a fraction in [0,1]. Range is checked
// at Resolve time, not here.
func Fraction(f float64) PositionValue {
	return PositionValue{number: f, defined: true}
}

// Percent builds a PositionValue from a percentage string like "50%".
func Percent(s string) PositionValue {
	return PositionValue{percent: s, isPct: true, defined: true}
}

func (v PositionValue) IsDefined() bool {
	return v.defined
}

// Resolve parses and validates the value into a fraction in [0,1].
// Out-of-range values are a validation error, not a clamp.
func (v PositionValue) Resolve() (float64, error) {
	f, err := v.ResolveOffset()
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("position value %v is outside [0%%, 100%%]", v.display())
	}
	return f, nil
}

// ResolveOffset parses the value into a fraction without the [0,1] range
// check. Gesture waypoints are offsets relative to an anchor and may be
// negative.
func (v PositionValue) ResolveOffset() (float64, error) {
	if !v.defined {
		return 0, fmt.Errorf("position value is not set")
	}

	f := v.number
	if v.isPct {
		s := strings.TrimSuffix(strings.TrimSpace(v.percent), "%")
		if s == v.percent {
			return 0, fmt.Errorf("invalid percentage value %q", v.percent)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage value %q", v.percent)
		}
		f = parsed / 100
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("position value is not a finite number")
	}
	return f, nil
}

func (v PositionValue) display() interface{} {
	if v.isPct {
		return v.percent
	}
	return v.number
}

func (v PositionValue) MarshalJSON() ([]byte, error) {
	if v.isPct {
		return json.Marshal(v.percent)
	}
	return json.Marshal(v.number)
}

func (v *PositionValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Percent(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("position value must be a number or percentage string")
	}
	*v = Fraction(f)
	return nil
}

// Position is a normalized coordinate with each axis in [0,1].
type Position struct {
	X PositionValue `json:"x"`
	Y PositionValue `json:"y"`
}

// Pos is shorthand for a fractional Position.
func Pos(x, y float64) Position {
	return Position{X: Fraction(x), Y: Fraction(y)}
}
