package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobile-next/streamkit/types"
)

func TestBuild_SingleSegmentDefaults(t *testing.T) {
	moves, err := NewBuilder().
		To(types.Fraction(1), types.Fraction(0)).
		Build()
	require.NoError(t, err)

	// 500ms floor at 16ms per step: 31 interpolated points plus the endpoint.
	require.Len(t, moves, 32)

	first := moves[0]
	assert.Equal(t, 0.0, first.X)
	assert.Equal(t, 0.0, first.Y)
	assert.Equal(t, 0.0, first.T)

	last := moves[len(moves)-1]
	assert.Equal(t, 1.0, last.X)
	assert.Equal(t, 0.0, last.Y)
	assert.InDelta(t, 0.5, last.T, 1e-9)

	for i := 1; i < len(moves); i++ {
		assert.Greater(t, moves[i].T, moves[i-1].T)
		assert.GreaterOrEqual(t, moves[i].X, moves[i-1].X)
	}
}

func TestBuild_MultiSegmentTimestamps(t *testing.T) {
	moves, err := NewBuilder().
		WithDuration(time.Second).
		WithStepDuration(100 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(0)).
		To(types.Fraction(1), types.Fraction(1)).
		Build()
	require.NoError(t, err)

	// 5 steps per segment, boundary between segments not duplicated.
	require.Len(t, moves, 11)
	assert.InDelta(t, 0.5, moves[5].T, 1e-9)
	assert.Equal(t, 1.0, moves[5].X)
	assert.Equal(t, 0.0, moves[5].Y)

	last := moves[len(moves)-1]
	assert.InDelta(t, 1.0, last.T, 1e-9)
	assert.Equal(t, 1.0, last.X)
	assert.Equal(t, 1.0, last.Y)
}

func TestBuild_WaitHoldsPoint(t *testing.T) {
	moves, err := NewBuilder().
		WithDuration(time.Second).
		WithStepDuration(100 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(0)).
		Wait(200 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(1)).
		Build()
	require.NoError(t, err)

	// The waited waypoint is emitted at the segment boundary, and every later
	// timestamp is shifted by the pause.
	require.Len(t, moves, 12)
	assert.InDelta(t, 0.5, moves[5].T, 1e-9)
	assert.Equal(t, 1.0, moves[5].X)
	assert.InDelta(t, 0.7, moves[6].T, 1e-9)
	assert.Equal(t, 1.0, moves[6].X)
	assert.Equal(t, 0.0, moves[6].Y)

	last := moves[len(moves)-1]
	assert.InDelta(t, 1.2, last.T, 1e-9)
}

func TestBuild_TrailingWaitDuplicatesEndpoint(t *testing.T) {
	moves, err := NewBuilder().
		WithDuration(time.Second).
		WithStepDuration(100 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(0)).
		Wait(300 * time.Millisecond).
		Build()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(moves), 2)
	hold := moves[len(moves)-2]
	last := moves[len(moves)-1]
	assert.Equal(t, hold.X, last.X)
	assert.Equal(t, hold.Y, last.Y)
	assert.InDelta(t, 0.3, last.T-hold.T, 1e-9)
}

func TestBuild_LeadingWait(t *testing.T) {
	moves, err := NewBuilder().
		WithDuration(time.Second).
		WithStepDuration(100 * time.Millisecond).
		Wait(500 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(0)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 0.0, moves[0].T)
	assert.InDelta(t, 0.5, moves[1].T, 1e-9)
	assert.Equal(t, moves[0].X, moves[1].X)
}

func TestBuild_DirectionShortcuts(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder) *Builder
		x, y  float64
	}{
		{"up", (*Builder).Up, 0, -0.5},
		{"down", (*Builder).Down, 0, 0.5},
		{"left", (*Builder).Left, -0.5, 0},
		{"right", (*Builder).Right, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moves, err := tt.build(NewBuilder()).Build()
			require.NoError(t, err)
			last := moves[len(moves)-1]
			assert.InDelta(t, tt.x, last.X, 1e-9)
			assert.InDelta(t, tt.y, last.Y, 1e-9)
		})
	}
}

func TestBuild_PercentStringsAndNegativeOffsets(t *testing.T) {
	moves, err := NewBuilder().
		To(types.Percent("-25%"), types.Percent("50%")).
		Build()
	require.NoError(t, err)

	last := moves[len(moves)-1]
	assert.InDelta(t, -0.25, last.X, 1e-9)
	assert.InDelta(t, 0.5, last.Y, 1e-9)
}

func TestBuild_NoWaypoints(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)
	assert.True(t, types.IsOperational(err))
}

func TestBuild_DurationTooShort(t *testing.T) {
	_, err := NewBuilder().
		WithDuration(10 * time.Millisecond).
		To(types.Fraction(1), types.Fraction(0)).
		To(types.Fraction(1), types.Fraction(1)).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32ms")
}

func TestBuild_InvalidWaypointSticks(t *testing.T) {
	b := NewBuilder().
		To(types.Percent("oops"), types.Fraction(0)).
		To(types.Fraction(1), types.Fraction(1))

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, types.IsOperational(err))
	assert.Contains(t, err.Error(), "waypoint x")
}
