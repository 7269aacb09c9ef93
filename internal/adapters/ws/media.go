package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/domain"
)

func (g *Gateway) handleMediaToggle(c *wsConn, data []byte) {
	var p struct {
		Type          string               `json:"type"`
		SessionID     domain.SessionID     `json:"sessionId"`
		ParticipantID domain.ParticipantID `json:"participantId"`
		Kind          domain.MediaKind     `json:"kind"`
		Enabled       bool                 `json:"enabled"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.ParticipantID == "" {
		log.Warn().Str("module", "ws.media").Msg("bad media-toggle payload")
		return
	}

	if !g.Registry.SetMediaFlag(p.SessionID, p.ParticipantID, p.Kind, p.Enabled) {
		log.Warn().Str("module", "ws.media").Str("session", string(p.SessionID)).
			Str("participant", string(p.ParticipantID)).Str("kind", string(p.Kind)).
			Msg("media toggle for unknown participant, dropped")
		return
	}

	// The toggle itself goes out verbatim, then a refreshed roster so late
	// joiners converge on the same flag state.
	g.broadcastAll(p.SessionID, json.RawMessage(data))
	g.broadcastAll(p.SessionID, participantsListMsg{
		Type:         evParticipantsList,
		SessionID:    p.SessionID,
		Participants: g.Registry.ParticipantList(p.SessionID),
	})
}

func (g *Gateway) handleScreenShare(c *wsConn, data []byte, start bool) {
	var p struct {
		Type          string               `json:"type"`
		SessionID     domain.SessionID     `json:"sessionId"`
		ParticipantID domain.ParticipantID `json:"participantId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.ParticipantID == "" {
		log.Warn().Str("module", "ws.media").Msg("bad screen-share payload")
		return
	}

	if !g.Registry.SetMediaFlag(p.SessionID, p.ParticipantID, domain.MediaScreen, start) {
		return
	}
	g.broadcastAll(p.SessionID, json.RawMessage(data))
	g.broadcastAll(p.SessionID, participantsListMsg{
		Type:         evParticipantsList,
		SessionID:    p.SessionID,
		Participants: g.Registry.ParticipantList(p.SessionID),
	})
}
