package domain

import (
	"encoding/json"
	"time"
)

// ChatMessage lives only for the duration of delivery; chat history is
// never persisted. Timestamp is stamped server-side at broadcast time.
type ChatMessage struct {
	RoomID    RoomID      `json:"room"`
	Message   string      `json:"message"`
	Sender    Participant `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
}

// SignalEnvelope carries a WebRTC negotiation payload (session description
// or ICE candidate). The relay never interprets Signal.
type SignalEnvelope struct {
	ParticipantID ParticipantID   `json:"participant"`
	RoomID        RoomID          `json:"room"`
	Signal        json.RawMessage `json:"signal"`
}
