package app

import (
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// Notifier lets the lifecycle tell the room about a departure without
// knowing anything about the transport. The gateway implements it.
type Notifier interface {
	ParticipantLeft(sid domain.SessionID, pid domain.ParticipantID, remaining []core.ParticipantDTO)
}

// Lifecycle owns disconnect/leave cleanup: remove the participant, notify
// the room, and when the session empties tear it down, unsubscribing from
// the bus exactly once.
type Lifecycle struct {
	Registry *Registry
	Notifier Notifier
}

func NewLifecycle(reg *Registry, n Notifier) *Lifecycle {
	return &Lifecycle{Registry: reg, Notifier: n}
}

// Leave removes pid from sid. Calling it for a connection that never
// identified, or twice for the same participant, is a no-op.
func (l *Lifecycle) Leave(sid domain.SessionID, pid domain.ParticipantID) bool {
	if sid == "" || pid == "" {
		return false
	}
	remaining, ok := l.Registry.RemoveParticipant(sid, pid)
	if !ok {
		return false
	}
	log.Info().Str("module", "app.lifecycle").Str("session", string(sid)).
		Str("participant", string(pid)).Int("remaining", remaining).Msg("participant left")

	if l.Notifier != nil {
		l.Notifier.ParticipantLeft(sid, pid, l.Registry.ParticipantList(sid))
	}

	if remaining == 0 {
		l.teardown(sid)
	}
	return true
}

func (l *Lifecycle) teardown(sid domain.SessionID) {
	if sub := l.Registry.TakeSubscription(sid); sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("module", "app.lifecycle").
				Str("session", string(sid)).Msg("bus unsubscribe failed")
		}
	}
	l.Registry.Remove(sid)
}
