// internal/model/connection.go
package model

// AppState is the tether application's link to the phone service.
type AppState int

const (
	AppDisconnected AppState = iota
	AppConnecting
	AppStartingSession
	AppConnected
)

func (s AppState) String() string {
	switch s {
	case AppDisconnected:
		return "Disconnected"
	case AppConnecting:
		return "Connecting"
	case AppStartingSession:
		return "StartingSession"
	case AppConnected:
		return "Connected"
	}
	return "Unknown"
}

// DeviceState is the handset's own link as last reported by the tether agent.
type DeviceState int

const (
	DeviceUnknown DeviceState = iota
	DeviceIdle
	DeviceBusy
)

func (s DeviceState) String() string {
	switch s {
	case DeviceIdle:
		return "Idle"
	case DeviceBusy:
		return "Busy"
	}
	return "Unknown"
}

// ConnectionState is written only by the connection monitor and read by the
// dispatcher and the relay status endpoint.
type ConnectionState struct {
	App    AppState
	Device DeviceState
}

// Usable reports whether a direct SMS send is possible right now.
func (c ConnectionState) Usable() bool {
	return c.App == AppConnected && c.Device != DeviceUnknown
}
