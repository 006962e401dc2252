package models

// MessageType discriminates the frames exchanged on a board channel.
type MessageType string

const (
	// MessageSnapshot carries the full current board state. Sent once
	// to a connection immediately after it is admitted to a room.
	MessageSnapshot MessageType = "snapshot"

	// MessageUpdate carries a sender's complete local view of the
	// board. The server replaces the room state with it and relays it
	// to every other member of the room.
	MessageUpdate MessageType = "update"

	MessageError MessageType = "error"
)

// Message is the envelope for every frame on a board channel. Elements
// is always present on snapshot and update frames, even when empty, so
// a fresh room reads as {"elements":[]} rather than null.
type Message struct {
	Type     MessageType `json:"type"`
	Elements Elements    `json:"elements"`
	From     string      `json:"from,omitempty"`
	Error    string      `json:"error,omitempty"`
}
