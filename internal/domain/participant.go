// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const (
	MaxSessionIDLen     = 64
	MaxParticipantIDLen = 64
	MaxNameLen          = 64
)

var (
	ErrSessionIDEmpty       = errors.New("session id empty")
	ErrSessionIDTooLong     = errors.New("session id too long")
	ErrParticipantIDEmpty   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
	ErrNameTooLong          = errors.New("name too long")
)

type (
	SessionID     string
	ParticipantID string
)

func (s SessionID) Validate() error {
	if len(s) == 0 {
		return ErrSessionIDEmpty
	}
	if len(s) > MaxSessionIDLen {
		return ErrSessionIDTooLong
	}
	return nil
}

// Participant is a user's presence within one session. The identifier is
// issued externally and stable across reconnects; media flags are transient
// and die with the participant.
type Participant struct {
	ID     ParticipantID
	Name   string
	IsHost bool

	Muted         bool
	VideoOff      bool
	ScreenSharing bool
}

// NewParticipant avoids raw literals in adapters and keeps validation in one place.
func NewParticipant(id ParticipantID, name string, isHost bool) (*Participant, error) {
	if len(id) == 0 {
		return nil, ErrParticipantIDEmpty
	}
	if len(id) > MaxParticipantIDLen {
		return nil, ErrParticipantIDTooLong
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{ID: id, Name: name, IsHost: isHost}, nil
}

// MediaKind selects which transient flag a media-toggle mutates.
type MediaKind string

const (
	MediaAudio  MediaKind = "audio"
	MediaVideo  MediaKind = "video"
	MediaScreen MediaKind = "screen"
)
