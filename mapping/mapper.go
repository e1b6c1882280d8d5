// Package mapping converts between the public action/element shapes and the
// wire shapes understood by the remote executor, including the coordinate
// space conversions between normalized positions, device-independent points
// and device pixels.
package mapping

import (
	"math"

	"github.com/mobile-next/streamkit/types"
)

// Mapper is stateless given the platform and screen bounds captured at
// construction. Sessions build a fresh Mapper whenever the remote reports
// updated device info.
type Mapper struct {
	platform types.Platform
	screen   types.ScreenBounds
}

func New(platform types.Platform, screen types.ScreenBounds) *Mapper {
	return &Mapper{platform: platform, screen: screen}
}

func (m *Mapper) Platform() types.Platform {
	return m.platform
}

// pixelSize converts reported bounds to pixel units. Android reports bounds
// in device-independent points and needs the pixel ratio applied; iOS values
// pass through.
func (m *Mapper) pixelSize(bounds types.ScreenBounds) (float64, float64) {
	if m.platform == types.PlatformAndroid {
		return bounds.Width * bounds.Ratio(), bounds.Height * bounds.Ratio()
	}
	return bounds.Width, bounds.Height
}

// PercentageToPixel resolves a normalized position against the given bounds.
// Bounds are inclusive-pixel, hence the -1 on each axis.
func (m *Mapper) PercentageToPixel(pos types.Position, bounds types.ScreenBounds) (types.Coordinate, error) {
	x, err := pos.X.Resolve()
	if err != nil {
		return types.Coordinate{}, types.NewOperationalError("invalid x position: %v", err)
	}
	y, err := pos.Y.Resolve()
	if err != nil {
		return types.Coordinate{}, types.NewOperationalError("invalid y position: %v", err)
	}

	w, h := m.pixelSize(bounds)
	return types.Coordinate{
		X: x * axisSpan(w),
		Y: y * axisSpan(h),
	}, nil
}

// PixelToPercentage is the inverse of PercentageToPixel, used when reporting
// coordinates back to the caller.
func (m *Mapper) PixelToPercentage(c types.Coordinate, bounds types.ScreenBounds) types.Position {
	w, h := m.pixelSize(bounds)
	return types.Position{
		X: types.Fraction(normalize(c.X, w)),
		Y: types.Fraction(normalize(c.Y, h)),
	}
}

func axisSpan(size float64) float64 {
	if size <= 1 {
		return 0
	}
	return size - 1
}

func normalize(pixel, size float64) float64 {
	span := axisSpan(size)
	if span == 0 {
		return 0
	}
	return pixel / span
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
