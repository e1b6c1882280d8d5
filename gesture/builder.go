// Package gesture builds time-stamped multi-touch paths from waypoints in
// percentage space. The output is pure math over normalized coordinates; the
// coordinate mapper converts it to pixels when the gesture is embedded in a
// swipe action.
package gesture

import (
	"time"

	"github.com/mobile-next/streamkit/types"
)

const (
	// DefaultStepDuration is one point per step at roughly 60Hz.
	DefaultStepDuration = 16 * time.Millisecond

	// MinDuration is the floor applied to the default gesture duration.
	MinDuration = 500 * time.Millisecond

	// defaultDirectionOffset is the magnitude of the up/down/left/right
	// convenience waypoints.
	defaultDirectionOffset = 0.5
)

type waypoint struct {
	x, y float64
	wait time.Duration
}

// Builder accumulates waypoints relative to the gesture's anchor point and
// produces the interpolated move sequence on Build. The zero offset origin is
// always the first waypoint.
type Builder struct {
	points       []waypoint
	stepDuration time.Duration
	duration     time.Duration
	err          error
}

func NewBuilder() *Builder {
	return &Builder{
		points:       []waypoint{{}},
		stepDuration: DefaultStepDuration,
	}
}

// WithDuration overrides the total gesture duration.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.duration = d
	return b
}

// WithStepDuration overrides the interpolation step.
func (b *Builder) WithStepDuration(d time.Duration) *Builder {
	if d > 0 {
		b.stepDuration = d
	}
	return b
}

// To appends a waypoint at the given offsets from the gesture anchor. Values
// accept fractions or percentage strings; the first error sticks and is
// reported by Build.
func (b *Builder) To(x, y types.PositionValue) *Builder {
	if b.err != nil {
		return b
	}

	fx, err := x.ResolveOffset()
	if err != nil {
		b.err = types.NewOperationalError("invalid gesture waypoint x: %v", err)
		return b
	}
	fy, err := y.ResolveOffset()
	if err != nil {
		b.err = types.NewOperationalError("invalid gesture waypoint y: %v", err)
		return b
	}

	b.points = append(b.points, waypoint{x: fx, y: fy})
	return b
}

// Wait attaches a pause to the most recent waypoint. The built path holds a
// duplicate point for the pause and shifts all later timestamps.
func (b *Builder) Wait(d time.Duration) *Builder {
	if d > 0 {
		b.points[len(b.points)-1].wait += d
	}
	return b
}

// Up adds a waypoint half the screen above the anchor.
func (b *Builder) Up() *Builder { return b.offset(0, -defaultDirectionOffset) }

// Down adds a waypoint half the screen below the anchor.
func (b *Builder) Down() *Builder { return b.offset(0, defaultDirectionOffset) }

// Left adds a waypoint half the screen left of the anchor.
func (b *Builder) Left() *Builder { return b.offset(-defaultDirectionOffset, 0) }

// Right adds a waypoint half the screen right of the anchor.
func (b *Builder) Right() *Builder { return b.offset(defaultDirectionOffset, 0) }

func (b *Builder) offset(x, y float64) *Builder {
	return b.To(types.Fraction(x), types.Fraction(y))
}

// Build produces the interpolated move sequence. Within each segment the path
// is linear per axis; the last step of a segment is skipped except for the
// final segment, so waypoint boundaries are not emitted twice.
func (b *Builder) Build() ([]types.GestureMove, error) {
	if b.err != nil {
		return nil, b.err
	}

	segments := len(b.points) - 1
	if segments == 0 {
		return nil, types.NewOperationalError("gesture requires at least one waypoint")
	}

	duration := b.duration
	if duration == 0 {
		duration = time.Duration(segments) * b.stepDuration
		if duration < MinDuration {
			duration = MinDuration
		}
	}

	totalSteps := int(duration / b.stepDuration)
	stepsPerSegment := totalSteps / segments
	if stepsPerSegment == 0 {
		return nil, types.NewOperationalError(
			"gesture duration %v is too short for %d waypoints; at least %v is required",
			duration, len(b.points), time.Duration(segments)*b.stepDuration)
	}

	segmentSeconds := duration.Seconds() / float64(segments)
	var moves []types.GestureMove
	var accruedWait float64

	if w := b.points[0].wait; w > 0 {
		moves = append(moves, types.GestureMove{X: b.points[0].x, Y: b.points[0].y, T: 0})
		accruedWait += w.Seconds()
	}

	for s := 0; s < segments; s++ {
		from, to := b.points[s], b.points[s+1]
		for i := 0; i < stepsPerSegment; i++ {
			frac := float64(i) / float64(stepsPerSegment)
			moves = append(moves, types.GestureMove{
				X: lerp(from.x, to.x, frac),
				Y: lerp(from.y, to.y, frac),
				T: (float64(s)+frac)*segmentSeconds + accruedWait,
			})
		}

		boundaryT := float64(s+1)*segmentSeconds + accruedWait
		last := s == segments-1
		if last || to.wait > 0 {
			moves = append(moves, types.GestureMove{X: to.x, Y: to.y, T: boundaryT})
		}
		if to.wait > 0 {
			accruedWait += to.wait.Seconds()
			if last {
				moves = append(moves, types.GestureMove{X: to.x, Y: to.y, T: boundaryT + to.wait.Seconds()})
			}
		}
	}

	return moves, nil
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}
