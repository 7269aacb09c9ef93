package core

import (
	"encoding/json"

	"github.com/kodesesh/backend/internal/domain"
)

// SyncHandler consumes a sync event mirrored from another instance.
// Handlers must apply idempotently: the bus is at-least-once and unordered.
type SyncHandler func(domain.SyncEvent)

// ResyncHandler answers a global resync request for a session this instance
// may or may not hold.
type ResyncHandler func(domain.ResyncRequest)

// Subscription is a live bus subscription handle.
type Subscription interface {
	Unsubscribe() error
}

// Bus mirrors state-sync events across server instances. Implementations
// must never deliver an instance's own events back to it.
type Bus interface {
	// Publish mirrors one session event to every other instance.
	Publish(sid domain.SessionID, eventType string, payload json.RawMessage) error

	// Subscribe covers all event kinds for one session. At most one
	// subscription per (session, instance) is the caller's contract.
	Subscribe(sid domain.SessionID, fn SyncHandler) (Subscription, error)

	// RequestResync asks any instance holding the session to re-publish its
	// current state.
	RequestResync(req domain.ResyncRequest) error

	// SubscribeResync listens on the global resync subject.
	SubscribeResync(fn ResyncHandler) (Subscription, error)

	Close()
}
