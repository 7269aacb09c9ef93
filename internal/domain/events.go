package domain

import (
	"encoding/json"
	"time"
)

// SignalEnvelope is the routing header of a directed peer-signaling message
// (offer/answer/ICE). It is transient: relayed once, never stored. The full
// wire frame travels alongside it so the relay can forward bytes untouched.
type SignalEnvelope struct {
	SessionID  SessionID     `json:"sessionId"`
	SenderID   ParticipantID `json:"senderId"`
	ReceiverID ParticipantID `json:"receiverId"`
}

// SyncEvent is a session-scoped event mirrored across server instances.
// Origin names the publishing instance so a subscriber can drop its own
// events even when the bus echoes them back.
type SyncEvent struct {
	SessionID SessionID       `json:"sessionId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp time.Time       `json:"timestamp"`
}

// ResyncRequest is the payload of the global resync subject. Any instance
// holding the session may answer, regardless of where the requester is
// connected.
type ResyncRequest struct {
	SessionID     SessionID     `json:"sessionId"`
	ParticipantID ParticipantID `json:"participantId"`
	Timestamp     time.Time     `json:"timestamp"`
}
