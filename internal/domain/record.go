package domain

import "time"

// SessionStatus mirrors the lifecycle of a persisted session record.
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// SessionRecord is the durable view of a session, owned by the store adapter.
// The live participant set never lives here; it belongs to the registry.
type SessionRecord struct {
	SessionID SessionID     `json:"session_id"`
	Title     string        `json:"title"`
	HostID    ParticipantID `json:"host_id"`
	HostName  string        `json:"host_name"`
	Status    SessionStatus `json:"status"`
	Link      string        `json:"session_link"`
	CreatedAt time.Time     `json:"created_at"`
}
