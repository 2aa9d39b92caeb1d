// Package hub fans dashboard events out to websocket clients using a
// channel-based broadcast loop. Slow clients are dropped rather than
// allowed to stall the rest.
package hub

// Message is one JSON-encoded payload queued for broadcast. The write
// pump sends every message as a websocket text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
