package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/domain"
)

func (g *Gateway) handleCodeUpdate(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Code      string           `json:"code"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		log.Warn().Str("module", "ws.code").Msg("bad code-update payload")
		return
	}

	g.Registry.Ensure(p.SessionID)
	g.Registry.SetCode(p.SessionID, p.Code)
	g.broadcastExcept(p.SessionID, c, codeUpdateMsg{
		Type:      evCodeUpdate,
		SessionID: p.SessionID,
		Code:      p.Code,
	})
	g.publishSync(p.SessionID, evCodeUpdate, mustMarshal(map[string]string{"code": p.Code}))
}

func (g *Gateway) handleLanguageUpdate(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Language  string           `json:"language"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		log.Warn().Str("module", "ws.code").Msg("bad language-update payload")
		return
	}

	g.Registry.Ensure(p.SessionID)
	g.Registry.SetLanguage(p.SessionID, p.Language)
	g.broadcastExcept(p.SessionID, c, languageUpdateMsg{
		Type:      evLanguageUpdate,
		SessionID: p.SessionID,
		Language:  p.Language,
	})
	g.publishSync(p.SessionID, evLanguageUpdate, mustMarshal(map[string]string{"language": p.Language}))
}

func (g *Gateway) handleGetLanguageState(c *wsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		return
	}
	lang, ok := g.Registry.Language(p.SessionID)
	if !ok {
		// Absent session: answer with the zero state rather than an error.
		lang = ""
	}
	g.sendJSON(c, languageUpdateMsg{Type: evLanguageUpdate, SessionID: p.SessionID, Language: lang})
}

// handleTyping forwards presence chatter verbatim, sender excluded. No
// registry state is involved.
func (g *Gateway) handleTyping(c *wsConn, data []byte) {
	sid, ok := sessionIDOf(data)
	if !ok {
		return
	}
	g.rooms.Broadcast(sid, c, data)
}

// handleExecutionResult mirrors a display-only result to the room, sender
// excluded. Never stored, never mirrored across instances.
func (g *Gateway) handleExecutionResult(c *wsConn, data []byte) {
	sid, ok := sessionIDOf(data)
	if !ok {
		log.Warn().Str("module", "ws.code").Msg("bad execution-result payload")
		return
	}
	g.rooms.Broadcast(sid, c, data)
}

func sessionIDOf(data []byte) (domain.SessionID, bool) {
	var p struct {
		SessionID domain.SessionID `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		return "", false
	}
	return p.SessionID, true
}
