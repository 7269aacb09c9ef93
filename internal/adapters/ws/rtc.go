package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/domain"
)

// handleRTCReady announces media readiness to everyone else in the room so
// peers know they may start requesting connections.
func (g *Gateway) handleRTCReady(c *wsConn, data []byte) {
	sid, ok := sessionIDOf(data)
	if !ok {
		log.Warn().Str("module", "ws.rtc").Msg("bad rtc-ready payload")
		return
	}
	g.rooms.Broadcast(sid, c, data)
}

// handleRTCRequestConnection is a directed "call me" nudge: relay to the
// target if resolvable, otherwise let the whole room hear it.
func (g *Gateway) handleRTCRequestConnection(c *wsConn, data []byte) {
	var p struct {
		Type        string               `json:"type"`
		SessionID   domain.SessionID     `json:"sessionId"`
		RequesterID domain.ParticipantID `json:"requesterId"`
		TargetID    domain.ParticipantID `json:"targetId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.TargetID == "" {
		log.Warn().Str("module", "ws.rtc").Msg("bad rtc-request-connection payload")
		return
	}
	g.Relay.Relay(domain.SignalEnvelope{
		SessionID:  p.SessionID,
		SenderID:   p.RequesterID,
		ReceiverID: p.TargetID,
	}, data)
}

// handleRTCSignal relays offer/answer/ICE frames. The payload (sdp,
// candidate fields) is opaque to the server and forwarded byte-for-byte.
func (g *Gateway) handleRTCSignal(c *wsConn, data []byte) {
	var env domain.SignalEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.SessionID == "" || env.ReceiverID == "" {
		log.Warn().Str("module", "ws.rtc").Msg("bad rtc signal payload")
		return
	}
	g.Relay.Relay(env, data)
}
