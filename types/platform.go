package types

// Platform identifies the operating system of the remote device.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ScreenBounds holds the remote device's screen dimensions as reported by the
// streaming service. On Android the dimensions are device-independent points
// and DevicePixelRatio converts them to pixels; on iOS the reported values are
// already treated as device-independent.
type ScreenBounds struct {
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	DevicePixelRatio float64 `json:"devicePixelRatio,omitempty"`
}

// Ratio returns the device pixel ratio, defaulting to 1 when unreported.
func (b ScreenBounds) Ratio() float64 {
	if b.DevicePixelRatio == 0 {
		return 1
	}
	return b.DevicePixelRatio
}

// Coordinate is an absolute pixel pair in remote-device pixel space.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
