// Package realtime drives the live tutor room: it acquires a room credential,
// connects a Room and tracks the connection through its notifications.
package realtime

import "context"

// ConnectionState is what a Room reports about its link
type ConnectionState string

const (
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// DisconnectReason explains a Disconnected notification
type DisconnectReason string

const (
	ReasonClientInitiated DisconnectReason = "client_initiated"
	ReasonConnectionLost  DisconnectReason = "connection_lost"
	ReasonServerShutdown  DisconnectReason = "server_shutdown"
	ReasonUnknown         DisconnectReason = "unknown"
)

// EventKind identifies a room notification
type EventKind int

const (
	EventConnectionStateChanged EventKind = iota
	EventDisconnected
	EventReconnecting
	EventReconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionStateChanged:
		return "connection_state_changed"
	case EventDisconnected:
		return "disconnected"
	case EventReconnecting:
		return "reconnecting"
	case EventReconnected:
		return "reconnected"
	}
	return "unknown"
}

// Event is a room notification. State is set for ConnectionStateChanged,
// Reason for Disconnected.
type Event struct {
	Kind   EventKind
	State  ConnectionState
	Reason DisconnectReason
}

// MediaOptions are passed through to the room on connect
type MediaOptions struct {
	AdaptiveStream bool
	Dynacast       bool
	VideoWidth     int
	VideoHeight    int
	Audio          bool
	Video          bool
}

// DefaultMediaOptions enables adaptive streaming and dynacast with 720p
// capture
func DefaultMediaOptions() MediaOptions {
	return MediaOptions{
		AdaptiveStream: true,
		Dynacast:       true,
		VideoWidth:     1280,
		VideoHeight:    720,
		Audio:          true,
		Video:          true,
	}
}

// Room is the real-time SDK's room object as seen by the controller
type Room interface {
	Connect(ctx context.Context, serverURL, token string, opts MediaOptions) error
	Disconnect() error
	// Subscribe registers fn for notifications until unsubscribe is called
	Subscribe(fn func(Event)) (unsubscribe func())
}
