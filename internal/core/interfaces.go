// Package core holds the small interfaces the app layer consumes.
// Adapters implement them; app packages never import adapters.
package core

import "github.com/kodesesh/backend/internal/domain"

// Frame is a raw wire payload (JSON text frame).
type Frame []byte

// Conn abstracts a live client connection endpoint.
// Owned by the gateway adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a domain.Participant and its transport endpoint.
// This is what the registry stores and the relay resolves.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() Conn
}

// ParticipantDTO is a read-only view for wire messages (no transport fields).
type ParticipantDTO struct {
	ID            domain.ParticipantID `json:"id"`
	Name          string               `json:"name"`
	IsHost        bool                 `json:"isHost"`
	Muted         bool                 `json:"muted"`
	VideoOff      bool                 `json:"videoOff"`
	ScreenSharing bool                 `json:"screenSharing"`
}
