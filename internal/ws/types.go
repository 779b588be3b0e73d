package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgEvent = "event"
	MsgPong  = "pong"
	MsgError = "error"
)

// Message is the envelope of every frame the server writes.
type Message struct {
	Type  string `json:"type"`
	Event any    `json:"event,omitempty"`
	Error string `json:"error,omitempty"`
}
