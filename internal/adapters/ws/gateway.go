// Package ws is the socket gateway: it owns each client connection's
// lifecycle and maps inbound events onto registry mutations, signaling
// relay, room fanout and bus publishes.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/app"
	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options carries the transport knobs the gateway cares about.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	JoinLimit  int
	JoinWindow time.Duration
}

func (o *Options) fill() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.JoinLimit <= 0 {
		o.JoinLimit = 20
	}
	if o.JoinWindow <= 0 {
		o.JoinWindow = 10 * time.Second
	}
}

type Gateway struct {
	Registry  *app.Registry
	Relay     *app.Relay
	Lifecycle *app.Lifecycle
	Bus       core.Bus

	rooms   *roomSet
	limiter *JoinLimiter
	opts    Options
}

func NewGateway(reg *app.Registry, relay *app.Relay, bus core.Bus, opts Options) *Gateway {
	opts.fill()
	g := &Gateway{
		Registry: reg,
		Relay:    relay,
		Bus:      bus,
		rooms:    newRoomSet(),
		limiter:  NewJoinLimiter(opts.JoinLimit, opts.JoinWindow),
		opts:     opts,
	}
	g.Lifecycle = app.NewLifecycle(reg, g)
	return g
}

// Start wires the global resync subject. Bus failure degrades to
// local-only operation; the gateway keeps serving.
func (g *Gateway) Start() {
	if _, err := g.Bus.SubscribeResync(g.onResyncRequest); err != nil {
		log.Warn().Err(err).Str("module", "ws.gateway").Msg("resync subject unavailable, running local-only")
	}
}

// HandleWS upgrades the request and runs the connection's pumps.
func (g *Gateway) HandleWS(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws.gateway").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "ws.gateway").Str("client", token).Msg("new WS connection")

	conn := newWSConn(sock, g.opts.SendBuffer)
	conn.ws.SetReadLimit(g.opts.ReadLimit)

	ctx, cancel := context.WithCancel(ctx)
	go g.writePump(ctx, conn)
	go func() {
		defer cancel()
		g.readPump(ctx, conn)
	}()
}

func (g *Gateway) writePump(ctx context.Context, c *wsConn) {
	ping := time.NewTicker(g.opts.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws.gateway").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws.gateway").Msg("writePump write error")
				return
			}
		}
	}
}

func (g *Gateway) readPump(ctx context.Context, c *wsConn) {
	defer g.disconnect(c)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				return
			}
			g.dispatch(c, data)
		}
	}
}

// disconnect is the single cleanup path for a dying connection. It is safe
// to run for a connection that never joined or identified.
func (g *Gateway) disconnect(c *wsConn) {
	sid, attached := g.rooms.Detach(c)
	g.limiter.Forget(c)
	tag := c.getTag()
	if tag.sid != "" && g.ownsIdentity(c, tag) {
		g.Lifecycle.Leave(tag.sid, tag.pid)
	}
	if attached {
		g.reapIfAbandoned(sid)
	}
	c.Close()
}

// ownsIdentity reports whether c still backs the registry entry its tag
// names. After a rejoin the entry holds the new connection, and the old
// socket's eventual disconnect must not remove the live participant.
func (g *Gateway) ownsIdentity(c *wsConn, tag connTag) bool {
	ms, ok := g.Registry.Member(tag.sid, tag.pid)
	return ok && ms.Signal() == core.Conn(c)
}

// reapIfAbandoned drops a session that only ever saw anonymous joins once
// its last connection detaches. Sessions with identified participants are
// the lifecycle's business.
func (g *Gateway) reapIfAbandoned(sid domain.SessionID) {
	if g.rooms.ConnCount(sid) != 0 {
		return
	}
	if !g.Registry.Has(sid) || len(g.Registry.ParticipantList(sid)) != 0 {
		return
	}
	if sub := g.Registry.TakeSubscription(sid); sub != nil {
		_ = sub.Unsubscribe()
	}
	g.Registry.Remove(sid)
}

// ParticipantLeft implements app.Notifier: tell the room who left and what
// the roster looks like now.
func (g *Gateway) ParticipantLeft(sid domain.SessionID, pid domain.ParticipantID, remaining []core.ParticipantDTO) {
	g.broadcastAll(sid, participantLeftMsg{
		Type:          evParticipantLeft,
		SessionID:     sid,
		ParticipantID: pid,
	})
	g.broadcastAll(sid, participantsListMsg{
		Type:         evParticipantsList,
		SessionID:    sid,
		Participants: remaining,
	})
}

// ensureSubscribed makes the session's cross-instance mirror active, once.
func (g *Gateway) ensureSubscribed(sid domain.SessionID) {
	if g.Registry.Subscribed(sid) {
		return
	}
	sub, err := g.Bus.Subscribe(sid, g.applySync)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws.gateway").Str("session", string(sid)).
			Msg("bus subscribe failed, session is local-only")
		return
	}
	if !g.Registry.BindSubscription(sid, sub) {
		// Lost the race to another identify, or the session vanished.
		_ = sub.Unsubscribe()
	}
}

// applySync replays a mirrored event from another instance through the same
// room fanout local events use. Application is idempotent: state writes
// that change nothing are not rebroadcast, so duplicate deliveries die here.
func (g *Gateway) applySync(ev domain.SyncEvent) {
	switch ev.EventType {
	case evCodeUpdate:
		var p struct {
			Code string `json:"code"`
		}
		if err := unmarshalPayload(ev.Payload, &p); err != nil {
			log.Warn().Err(err).Str("module", "ws.gateway").Msg("malformed code sync event")
			return
		}
		changed, ok := g.Registry.SetCode(ev.SessionID, p.Code)
		if !ok || !changed {
			return
		}
		g.broadcastAll(ev.SessionID, codeUpdateMsg{Type: evCodeUpdate, SessionID: ev.SessionID, Code: p.Code})
	case evLanguageUpdate:
		var p struct {
			Language string `json:"language"`
		}
		if err := unmarshalPayload(ev.Payload, &p); err != nil {
			log.Warn().Err(err).Str("module", "ws.gateway").Msg("malformed language sync event")
			return
		}
		changed, ok := g.Registry.SetLanguage(ev.SessionID, p.Language)
		if !ok || !changed {
			return
		}
		g.broadcastAll(ev.SessionID, languageUpdateMsg{Type: evLanguageUpdate, SessionID: ev.SessionID, Language: p.Language})
	case evPRSync:
		// PR state is never stored server-side. Re-emit the mirrored copy
		// with the same flattened shape a local pr-sync frame carries.
		var p struct {
			EventType string          `json:"eventType"`
			PRData    json.RawMessage `json:"prData"`
		}
		if err := unmarshalPayload(ev.Payload, &p); err != nil {
			log.Warn().Err(err).Str("module", "ws.gateway").Msg("malformed pr sync event")
			return
		}
		g.broadcastAll(ev.SessionID, prSyncMsg{
			Type:      evPRSync,
			SessionID: ev.SessionID,
			EventType: p.EventType,
			PRData:    p.PRData,
		})
	default:
		log.Debug().Str("module", "ws.gateway").Str("event", ev.EventType).Msg("ignoring sync event kind")
	}
}

// onResyncRequest answers a global resync: if this instance holds the
// session, republish its scalar state and ask local PR holders to re-send.
func (g *Gateway) onResyncRequest(req domain.ResyncRequest) {
	if !g.Registry.Has(req.SessionID) {
		return
	}
	if code, ok := g.Registry.Code(req.SessionID); ok && code != "" {
		g.publishSync(req.SessionID, evCodeUpdate, mustMarshal(map[string]string{"code": code}))
	}
	if lang, ok := g.Registry.Language(req.SessionID); ok && lang != "" {
		g.publishSync(req.SessionID, evLanguageUpdate, mustMarshal(map[string]string{"language": lang}))
	}
	g.broadcastAll(req.SessionID, requestPRSyncMsg{
		Type:          evRequestPRSync,
		SessionID:     req.SessionID,
		ParticipantID: req.ParticipantID,
	})
}
