package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/domain"
)

// handlePRSync fans a pull-request state event out to the room and mirrors
// it to other instances. The server never keeps PR state; clients are the
// source of truth and resync on request.
func (g *Gateway) handlePRSync(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		EventType string           `json:"eventType"`
		PRData    json.RawMessage  `json:"prData"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.EventType == "" {
		log.Warn().Str("module", "ws.prsync").Msg("bad pr-sync payload")
		return
	}

	g.rooms.Broadcast(p.SessionID, c, data)
	g.publishSync(p.SessionID, evPRSync, mustMarshal(map[string]any{
		"eventType": p.EventType,
		"prData":    p.PRData,
	}))
}

// handleRequestPRSync asks the room, and every other instance, to re-send
// current PR state to the requesting participant.
func (g *Gateway) handleRequestPRSync(c *wsConn, data []byte) {
	var p struct {
		Type          string               `json:"type"`
		SessionID     domain.SessionID     `json:"sessionId"`
		ParticipantID domain.ParticipantID `json:"participantId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		log.Warn().Str("module", "ws.prsync").Msg("bad request-pr-sync payload")
		return
	}

	g.rooms.Broadcast(p.SessionID, c, data)
	if err := g.Bus.RequestResync(domain.ResyncRequest{
		SessionID:     p.SessionID,
		ParticipantID: p.ParticipantID,
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Str("module", "ws.prsync").
			Str("session", string(p.SessionID)).Msg("resync request failed, local room only")
	}
}
