package model

// StreamStatus is the lifecycle state of the upstream push subscription.
type StreamStatus string

const (

	// StreamConnecting An attempt to open the stream is in flight.
	StreamConnecting StreamStatus = "connecting"

	// StreamConnected The server handshake event arrived and frames are being read.
	StreamConnected StreamStatus = "connected"

	// StreamDisconnected An established stream dropped, or the client was told
	//to disconnect. A reconnect may be pending.
	StreamDisconnected StreamStatus = "disconnected"

	// StreamError A connection attempt failed before the server handshake.
	StreamError StreamStatus = "error"
)

// StreamStats mirrors the gateway's stream status endpoint.
type StreamStats struct {
	ActiveSubscribers int `json:"active_subscribers"`
}
