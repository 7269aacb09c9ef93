package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// The closed inbound/outbound event set. Every inbound name maps to exactly
// one handler below; unknown names are logged and dropped.
const (
	evJoin             = "join"
	evIdentify         = "identify"
	evGetParticipants  = "get-participants"
	evLeave            = "leave"
	evCodeUpdate       = "code-update"
	evLanguageUpdate   = "language-update"
	evGetLanguageState = "get-language-state"
	evTyping           = "typing"
	evExecutionResult  = "execution-result"
	evMediaToggle      = "media-toggle"
	evScreenShareStart = "screen-share-start"
	evScreenShareEnd   = "screen-share-end"
	evRTCReady         = "rtc-ready"
	evRTCRequestConn   = "rtc-request-connection"
	evRTCOffer         = "rtc-offer"
	evRTCAnswer        = "rtc-answer"
	evRTCICE           = "rtc-ice"
	evPRSync           = "pr-sync"
	evRequestPRSync    = "request-pr-sync"
	evPing             = "ping"

	evParticipantJoined = "participant-joined"
	evParticipantsList  = "participants-list"
	evParticipantLeft   = "participant-left"
	evPong              = "pong"
	evError             = "error"
)

type participantJoinedMsg struct {
	Type        string              `json:"type"`
	SessionID   domain.SessionID    `json:"sessionId"`
	Participant core.ParticipantDTO `json:"participant"`
}

type participantsListMsg struct {
	Type         string                `json:"type"`
	SessionID    domain.SessionID      `json:"sessionId"`
	Participants []core.ParticipantDTO `json:"participants"`
}

type participantLeftMsg struct {
	Type          string               `json:"type"`
	SessionID     domain.SessionID     `json:"sessionId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
}

type codeUpdateMsg struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Code      string           `json:"code"`
}

type languageUpdateMsg struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Language  string           `json:"language"`
}

type prSyncMsg struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	EventType string           `json:"eventType"`
	PRData    json.RawMessage  `json:"prData"`
}

type requestPRSyncMsg struct {
	Type          string               `json:"type"`
	SessionID     domain.SessionID     `json:"sessionId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
}

// dispatch routes one inbound frame. Malformed frames are dropped with a
// log line; nothing a client sends may tear down the dispatch loop.
func (g *Gateway) dispatch(c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws.dispatch").Msg("bad json frame, dropped")
		return
	}

	switch env.Type {
	case evJoin:
		g.handleJoin(c, data)
	case evIdentify:
		g.handleIdentify(c, data)
	case evGetParticipants:
		g.handleGetParticipants(c, data)
	case evLeave:
		g.handleLeave(c)
	case evCodeUpdate:
		g.handleCodeUpdate(c, data)
	case evLanguageUpdate:
		g.handleLanguageUpdate(c, data)
	case evGetLanguageState:
		g.handleGetLanguageState(c, data)
	case evTyping:
		g.handleTyping(c, data)
	case evExecutionResult:
		g.handleExecutionResult(c, data)
	case evMediaToggle:
		g.handleMediaToggle(c, data)
	case evScreenShareStart:
		g.handleScreenShare(c, data, true)
	case evScreenShareEnd:
		g.handleScreenShare(c, data, false)
	case evRTCReady:
		g.handleRTCReady(c, data)
	case evRTCRequestConn:
		g.handleRTCRequestConnection(c, data)
	case evRTCOffer, evRTCAnswer, evRTCICE:
		g.handleRTCSignal(c, data)
	case evPRSync:
		g.handlePRSync(c, data)
	case evRequestPRSync:
		g.handleRequestPRSync(c, data)
	case evPing:
		g.handlePing(c)
	default:
		log.Warn().Str("module", "ws.dispatch").Str("type", env.Type).Msg("unknown event")
	}
}

func (g *Gateway) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.dispatch").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (g *Gateway) sendError(c *wsConn, reason string) {
	g.sendJSON(c, map[string]string{"type": evError, "error": reason})
}

// broadcastAll fans v out to every connection in the room.
func (g *Gateway) broadcastAll(sid domain.SessionID, v any) {
	g.broadcastExcept(sid, nil, v)
}

// broadcastExcept fans v out to the room minus one connection.
func (g *Gateway) broadcastExcept(sid domain.SessionID, except *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.dispatch").Msg("broadcast marshal")
		return
	}
	g.rooms.Broadcast(sid, except, b)
}

// publishSync mirrors a state event to other instances. Bus failure is a
// warning, never an error surfaced to the client.
func (g *Gateway) publishSync(sid domain.SessionID, eventType string, payload json.RawMessage) {
	if err := g.Bus.Publish(sid, eventType, payload); err != nil {
		log.Warn().Err(err).Str("module", "ws.dispatch").
			Str("session", string(sid)).Str("event", eventType).
			Msg("bus publish failed, event stays local")
	}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable types, which these call sites
		// never pass.
		log.Error().Err(err).Str("module", "ws.dispatch").Msg("marshal")
		return json.RawMessage("{}")
	}
	return b
}
