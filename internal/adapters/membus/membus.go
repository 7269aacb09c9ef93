// Package membus is an in-process core.Bus. A Hub connects any number of
// endpoints the way a NATS server connects instances; an endpoint with no
// peers is the local-only degradation used when the real bus is
// unreachable. Delivery is asynchronous through bounded per-subscription
// queues, mimicking the at-least-once, unordered transport the gateway must
// tolerate.
package membus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

const subChanSize = 64

// Hub fans published events out to every endpoint except the origin.
type Hub struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
}

func NewHub() *Hub {
	return &Hub{}
}

// Endpoint creates one instance's view of the hub.
func (h *Hub) Endpoint(instance string) *Endpoint {
	e := &Endpoint{
		hub:      h,
		instance: instance,
		subs:     make(map[*subscription]struct{}),
	}
	h.mu.Lock()
	h.endpoints = append(h.endpoints, e)
	h.mu.Unlock()
	return e
}

func (h *Hub) deliver(ev domain.SyncEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.endpoints {
		if e.instance == ev.Origin {
			continue
		}
		e.deliver(ev)
	}
}

func (h *Hub) deliverResync(origin string, req domain.ResyncRequest) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.endpoints {
		if e.instance == origin {
			continue
		}
		e.deliverResync(req)
	}
}

// Endpoint implements core.Bus for one instance.
type Endpoint struct {
	hub      *Hub
	instance string

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	resync []core.ResyncHandler
	closed bool
}

func (e *Endpoint) Publish(sid domain.SessionID, eventType string, payload json.RawMessage) error {
	e.hub.deliver(domain.SyncEvent{
		SessionID: sid,
		EventType: eventType,
		Payload:   payload,
		Origin:    e.instance,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (e *Endpoint) Subscribe(sid domain.SessionID, fn core.SyncHandler) (core.Subscription, error) {
	s := &subscription{
		endpoint: e,
		sid:      sid,
		ch:       make(chan domain.SyncEvent, subChanSize),
		done:     make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-s.done:
				return
			case ev := <-s.ch:
				fn(ev)
			}
		}
	}()
	e.mu.Lock()
	e.subs[s] = struct{}{}
	e.mu.Unlock()
	return s, nil
}

func (e *Endpoint) RequestResync(req domain.ResyncRequest) error {
	e.hub.deliverResync(e.instance, req)
	return nil
}

func (e *Endpoint) SubscribeResync(fn core.ResyncHandler) (core.Subscription, error) {
	e.mu.Lock()
	e.resync = append(e.resync, fn)
	e.mu.Unlock()
	return nopSubscription{}, nil
}

func (e *Endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for s := range e.subs {
		close(s.done)
	}
	e.subs = make(map[*subscription]struct{})
}

func (e *Endpoint) deliver(ev domain.SyncEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for s := range e.subs {
		if s.sid != ev.SessionID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			log.Warn().Str("module", "membus").Str("session", string(ev.SessionID)).
				Msg("subscription queue full, sync event dropped")
		}
	}
}

func (e *Endpoint) deliverResync(req domain.ResyncRequest) {
	e.mu.Lock()
	handlers := make([]core.ResyncHandler, len(e.resync))
	copy(handlers, e.resync)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(req)
	}
}

type subscription struct {
	endpoint *Endpoint
	sid      domain.SessionID
	ch       chan domain.SyncEvent
	done     chan struct{}

	once sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.endpoint.mu.Lock()
		delete(s.endpoint.subs, s)
		s.endpoint.mu.Unlock()
		close(s.done)
	})
	return nil
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() error { return nil }
