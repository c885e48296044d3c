package hub

import "github.com/gofiber/contrib/websocket"

// Kind tells subscribers how to read a message.
type Kind int

const (
	// KindEvent is a JSON-encoded monitor event, sent as a text frame.
	KindEvent Kind = iota

	// KindFrame is the image behind the preceding blurry event, sent as a
	// binary frame.
	KindFrame
)

// Message is one unit of fan-out.
type Message struct {
	Kind Kind
	Data []byte
}

// frameType returns the websocket frame type for the message.
func (m Message) frameType() int {
	if m.Kind == KindFrame {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
