package app

import (
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// Delivery reports how the relay moved a frame.
type Delivery int

const (
	DeliveredDirect Delivery = iota
	DeliveredBroadcast
	DeliveredNone
)

// Relay moves directed peer-signaling frames. When the receiver's connection
// resolves on this instance the frame goes point-to-point; otherwise it falls
// back to a room fanout minus the sender. The fallback can reach peers the
// message was not meant for in rooms of three or more — delivery is chosen
// over strict privacy here.
type Relay struct {
	Registry *Registry
}

func NewRelay(reg *Registry) *Relay {
	return &Relay{Registry: reg}
}

// Relay forwards frame according to env. The frame is passed through
// untouched so payload shape is entirely the clients' business.
func (rl *Relay) Relay(env domain.SignalEnvelope, frame core.Frame) Delivery {
	if ms, ok := rl.Registry.Member(env.SessionID, env.ReceiverID); ok {
		if conn := ms.Signal(); conn != nil {
			if err := conn.TrySend(frame); err == nil {
				return DeliveredDirect
			}
			// Stale or saturated handle: treat like an unresolvable target.
			log.Warn().Str("module", "app.relay").
				Str("session", string(env.SessionID)).
				Str("receiver", string(env.ReceiverID)).
				Msg("direct send failed, falling back to room broadcast")
		}
	}

	sent := 0
	for _, ms := range rl.Registry.Members(env.SessionID) {
		if ms.Meta().ID == env.SenderID {
			continue
		}
		if conn := ms.Signal(); conn != nil {
			if err := conn.TrySend(frame); err == nil {
				sent++
			}
		}
	}
	if sent == 0 {
		return DeliveredNone
	}
	return DeliveredBroadcast
}
