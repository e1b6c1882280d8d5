package types

import "fmt"

// ProxyMode selects how the remote session handles app network traffic.
type ProxyMode string

const (
	ProxyDirect    ProxyMode = "direct"
	ProxyIntercept ProxyMode = "intercept"
)

// Location is a geographic coordinate pushed to the remote device.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SessionConfig is the flat snapshot of session options. It is replaced
// wholesale whenever the remote pushes a config update; callers must not
// mutate a config owned by a live session.
type SessionConfig struct {
	Platform  Platform  `json:"platform,omitempty"`
	Device    string    `json:"device,omitempty"`
	OSVersion string    `json:"osVersion,omitempty"`
	App       string    `json:"app,omitempty"`
	Proxy     ProxyMode `json:"proxy,omitempty"`
	Debug     bool      `json:"debug,omitempty"`
	Record    bool      `json:"record,omitempty"`
	Language  string    `json:"language,omitempty"`
	Location  *Location `json:"location,omitempty"`
	EnableAdb bool      `json:"enableAdb,omitempty"`
}

// DeviceInfo is the remote device description delivered on the deviceInfo
// event. Screen is replaced wholesale together with the rest of the struct.
type DeviceInfo struct {
	Name      string       `json:"name,omitempty"`
	Type      string       `json:"type,omitempty"`
	OSVersion string       `json:"osVersion,omitempty"`
	Screen    ScreenBounds `json:"screen"`
}

// AdbConnection describes the ADB-over-TCP side channel offered for Android
// sessions with enableAdb set.
type AdbConnection struct {
	Host               string `json:"hostname"`
	Port               int    `json:"port"`
	User               string `json:"user"`
	ForwardDestination string `json:"forwardDestination,omitempty"`
}

// ShellCommand renders the ssh command that forwards a local adb port to the
// remote emulator.
func (a AdbConnection) ShellCommand() string {
	cmd := fmt.Sprintf("ssh -p %d %s@%s", a.Port, a.User, a.Host)
	if a.ForwardDestination != "" {
		cmd += " -L " + a.ForwardDestination
	}
	return cmd
}
