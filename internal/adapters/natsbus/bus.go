// Package natsbus mirrors session state-sync events across server
// instances over NATS. Subjects are events.{sessionId}.{eventType}; one
// wildcard subscription per session covers every event kind. A global
// sync.request subject carries resync pleas any instance may answer.
package natsbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

const (
	subjectPrefix = "events"
	resyncSubject = "sync.request"

	// Per-subscription delivery queue. Overflow drops the oldest pending
	// mirror events; the resync path recovers the state later.
	subChanSize = 64
)

func sessionSubject(sid domain.SessionID, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, sid, eventType)
}

func sessionWildcard(sid domain.SessionID) string {
	return fmt.Sprintf("%s.%s.*", subjectPrefix, sid)
}

// Bus is the NATS-backed core.Bus.
type Bus struct {
	nc       *nats.Conn
	instance string
}

// New connects to NATS. The connection retries forever and never echoes an
// instance's own publishes back to it.
func New(url, instance string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("kodesesh-backend"),
		nats.NoEcho(),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Str("module", "natsbus").Msg("bus disconnected, running local-only until reconnect")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("module", "natsbus").Str("url", nc.ConnectedUrl()).Msg("bus reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info().Str("module", "natsbus").Str("url", url).Str("instance", instance).Msg("connected to bus")
	return &Bus{nc: nc, instance: instance}, nil
}

func (b *Bus) Publish(sid domain.SessionID, eventType string, payload json.RawMessage) error {
	ev := domain.SyncEvent{
		SessionID: sid,
		EventType: eventType,
		Payload:   payload,
		Origin:    b.instance,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	if err := b.nc.Publish(sessionSubject(sid, eventType), data); err != nil {
		return fmt.Errorf("publish %s: %w", sessionSubject(sid, eventType), err)
	}
	return nil
}

func (b *Bus) Subscribe(sid domain.SessionID, fn core.SyncHandler) (core.Subscription, error) {
	ch := make(chan *nats.Msg, subChanSize)
	sub, err := b.nc.ChanSubscribe(sessionWildcard(sid), ch)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sessionWildcard(sid), err)
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-ch:
				var ev domain.SyncEvent
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					log.Warn().Err(err).Str("module", "natsbus").Str("subject", msg.Subject).Msg("bad sync event, dropped")
					continue
				}
				// NoEcho already filters our own publishes; the origin
				// check also covers relayed duplicates.
				if ev.Origin == b.instance {
					continue
				}
				fn(ev)
			}
		}
	}()
	log.Info().Str("module", "natsbus").Str("session", string(sid)).Msg("subscribed to session events")
	return &subscription{sub: sub, done: done, sid: sid}, nil
}

func (b *Bus) RequestResync(req domain.ResyncRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode resync request: %w", err)
	}
	if err := b.nc.Publish(resyncSubject, data); err != nil {
		return fmt.Errorf("publish %s: %w", resyncSubject, err)
	}
	return nil
}

func (b *Bus) SubscribeResync(fn core.ResyncHandler) (core.Subscription, error) {
	sub, err := b.nc.Subscribe(resyncSubject, func(msg *nats.Msg) {
		var req domain.ResyncRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Warn().Err(err).Str("module", "natsbus").Msg("bad resync request, dropped")
			return
		}
		fn(req)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", resyncSubject, err)
	}
	return &subscription{sub: sub}, nil
}

func (b *Bus) Close() {
	if err := b.nc.Drain(); err != nil {
		log.Warn().Err(err).Str("module", "natsbus").Msg("bus drain")
	}
}

type subscription struct {
	sub  *nats.Subscription
	done chan struct{}
	sid  domain.SessionID
}

func (s *subscription) Unsubscribe() error {
	err := s.sub.Unsubscribe()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.sid != "" {
		log.Info().Str("module", "natsbus").Str("session", string(s.sid)).Msg("unsubscribed from session events")
	}
	return err
}
