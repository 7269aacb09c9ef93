package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

func (g *Gateway) handleJoin(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID.Validate() != nil {
		log.Warn().Str("module", "ws.session").Msg("bad join payload")
		g.sendError(c, "bad_payload")
		return
	}
	if !g.limiter.Allow(c) {
		log.Warn().Str("module", "ws.session").Str("session", string(p.SessionID)).Msg("join rate limited")
		g.sendError(c, "too_many_joins")
		return
	}

	g.rooms.Join(p.SessionID, c)
	g.Registry.Ensure(p.SessionID)
	log.Info().Str("module", "ws.session").Str("session", string(p.SessionID)).Msg("connection joined room")
}

func (g *Gateway) handleIdentify(c *wsConn, data []byte) {
	var p struct {
		Type          string               `json:"type"`
		SessionID     domain.SessionID     `json:"sessionId"`
		ParticipantID domain.ParticipantID `json:"participantId"`
		Name          string               `json:"name"`
		IsHost        bool                 `json:"isHost"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID.Validate() != nil {
		log.Warn().Str("module", "ws.session").Msg("bad identify payload")
		g.sendError(c, "bad_payload")
		return
	}

	participant, err := domain.NewParticipant(p.ParticipantID, p.Name, p.IsHost)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws.session").Msg("invalid identify")
		g.sendError(c, "bad_payload")
		return
	}

	// Identify without a prior join still lands the connection in the room.
	g.rooms.Join(p.SessionID, c)
	g.Registry.Ensure(p.SessionID)
	g.Registry.UpsertParticipant(p.SessionID, core.NewMemberSession(participant, c))
	c.setTag(p.SessionID, p.ParticipantID)
	g.ensureSubscribed(p.SessionID)

	log.Info().Str("module", "ws.session").Str("session", string(p.SessionID)).
		Str("participant", string(p.ParticipantID)).Bool("host", p.IsHost).Msg("participant identified")

	list := g.Registry.ParticipantList(p.SessionID)
	g.broadcastAll(p.SessionID, participantJoinedMsg{
		Type:      evParticipantJoined,
		SessionID: p.SessionID,
		Participant: core.ParticipantDTO{
			ID:     participant.ID,
			Name:   participant.Name,
			IsHost: participant.IsHost,
		},
	})
	g.broadcastAll(p.SessionID, participantsListMsg{
		Type:         evParticipantsList,
		SessionID:    p.SessionID,
		Participants: list,
	})
}

func (g *Gateway) handleGetParticipants(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		g.sendError(c, "bad_payload")
		return
	}
	// Absent session answers with an empty roster, not an error.
	g.sendJSON(c, participantsListMsg{
		Type:         evParticipantsList,
		SessionID:    p.SessionID,
		Participants: g.Registry.ParticipantList(p.SessionID),
	})
}

// handleLeave is an explicit leave without closing the socket.
func (g *Gateway) handleLeave(c *wsConn) {
	sid, attached := g.rooms.Detach(c)
	tag := c.getTag()
	if tag.sid != "" {
		c.setTag("", "")
		if g.ownsIdentity(c, tag) {
			g.Lifecycle.Leave(tag.sid, tag.pid)
		}
	}
	if attached {
		g.reapIfAbandoned(sid)
	}
}

func (g *Gateway) handlePing(c *wsConn) {
	g.sendJSON(c, map[string]string{"type": evPong})
}
