package signaling

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Wire message types exchanged over a live connection.
const (
	TypeCallSignal        = "call_signal"
	TypeJoinCall          = "join_call"
	TypeLeaveCall         = "leave_call"
	TypeUserJoined        = "user_joined"
	TypeUserLeft          = "user_left"
	TypeCallStatusChanged = "call_status_changed"
)

// ClientMessage is the envelope clients send over the socket. The signal
// payload is opaque to the server: WebRTC offers, answers and ICE candidates
// are relayed verbatim without interpretation.
type ClientMessage struct {
	Type       string          `json:"type"`
	CallID     uuid.UUID       `json:"call_id,omitempty"`
	ReceiverID uuid.UUID       `json:"receiver_id,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
}

// SignalEvent is a relayed signaling payload, delivered to the receiver with
// the sender's identity attached.
type SignalEvent struct {
	Type     string          `json:"type"`
	CallID   uuid.UUID       `json:"call_id"`
	SenderID uuid.UUID       `json:"sender_id"`
	Signal   json.RawMessage `json:"signal"`
}

// RoomEvent announces a membership change to the other room members.
type RoomEvent struct {
	Type   string    `json:"type"`
	CallID uuid.UUID `json:"call_id"`
	UserID uuid.UUID `json:"user_id"`
}

// StatusEvent announces a persisted call status transition.
type StatusEvent struct {
	Type   string    `json:"type"`
	CallID uuid.UUID `json:"call_id"`
	Status string    `json:"status"`
}
