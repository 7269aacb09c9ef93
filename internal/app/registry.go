package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// sessionState is the process-local working copy of one session.
// Code and language are last-write-wins scalars.
type sessionState struct {
	id       domain.SessionID
	code     string
	language string
	members  map[domain.ParticipantID]core.MemberSession
	sub      core.Subscription
}

// Registry maps session identifiers to live session state. It is the only
// shared mutable resource on an instance; every method takes the lock and
// runs to completion, so callers never observe a half-applied mutation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionState
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.SessionID]*sessionState)}
}

// Ensure creates the session if absent. Idempotent.
func (r *Registry) Ensure(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		return
	}
	r.sessions[sid] = &sessionState{
		id:      sid,
		members: make(map[domain.ParticipantID]core.MemberSession),
	}
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Msg("session created")
}

// Has reports whether the session exists on this instance.
func (r *Registry) Has(sid domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sid]
	return ok
}

// UpsertParticipant writes a member keyed by participant identifier,
// replacing any previous entry for the same id. A rejoin therefore
// overwrites the stale connection handle instead of duplicating the
// participant. Returns false if the session is absent.
func (r *Registry) UpsertParticipant(sid domain.SessionID, ms core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	pid := ms.Meta().ID
	if _, replaced := s.members[pid]; replaced {
		log.Info().Str("module", "app.registry").Str("session", string(sid)).
			Str("participant", string(pid)).Msg("participant re-identified, entry replaced")
	}
	s.members[pid] = ms
	return true
}

// RemoveParticipant deletes the member and reports how many remain.
// ok is false when the session or participant was already gone.
func (r *Registry) RemoveParticipant(sid domain.SessionID, pid domain.ParticipantID) (remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[sid]
	if !found {
		return 0, false
	}
	if _, found = s.members[pid]; !found {
		return len(s.members), false
	}
	delete(s.members, pid)
	return len(s.members), true
}

// Remove drops the whole session. Callers must have taken the bus
// subscription first (TakeSubscription).
func (r *Registry) Remove(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Msg("session removed")
}

// Member resolves one participant's live session entry.
func (r *Registry) Member(sid domain.SessionID, pid domain.ParticipantID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	ms, ok := s.members[pid]
	return ms, ok
}

// Members returns a snapshot of the session's live members.
func (r *Registry) Members(sid domain.SessionID) []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]core.MemberSession, 0, len(s.members))
	for _, ms := range s.members {
		out = append(out, ms)
	}
	return out
}

// ParticipantList returns wire-ready participant views.
func (r *Registry) ParticipantList(sid domain.SessionID) []core.ParticipantDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return []core.ParticipantDTO{}
	}
	out := make([]core.ParticipantDTO, 0, len(s.members))
	for _, ms := range s.members {
		p := ms.Meta()
		out = append(out, core.ParticipantDTO{
			ID:            p.ID,
			Name:          p.Name,
			IsHost:        p.IsHost,
			Muted:         p.Muted,
			VideoOff:      p.VideoOff,
			ScreenSharing: p.ScreenSharing,
		})
	}
	return out
}

// SetCode overwrites the working code copy. changed is false when the value
// was already current, which lets duplicate sync events die quietly.
func (r *Registry) SetCode(sid domain.SessionID, code string) (changed, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[sid]
	if !found {
		return false, false
	}
	if s.code == code {
		return false, true
	}
	s.code = code
	return true, true
}

// SetLanguage overwrites the language tag, same contract as SetCode.
func (r *Registry) SetLanguage(sid domain.SessionID, language string) (changed, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[sid]
	if !found {
		return false, false
	}
	if s.language == language {
		return false, true
	}
	s.language = language
	return true, true
}

// Code returns the current working code copy.
func (r *Registry) Code(sid domain.SessionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	return s.code, true
}

// Language returns the current language tag.
func (r *Registry) Language(sid domain.SessionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	return s.language, true
}

// SetMediaFlag mutates one transient media flag on a live participant.
func (r *Registry) SetMediaFlag(sid domain.SessionID, pid domain.ParticipantID, kind domain.MediaKind, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	ms, ok := s.members[pid]
	if !ok {
		return false
	}
	p := ms.Meta()
	switch kind {
	case domain.MediaAudio:
		p.Muted = !enabled
	case domain.MediaVideo:
		p.VideoOff = !enabled
	case domain.MediaScreen:
		p.ScreenSharing = enabled
	default:
		return false
	}
	return true
}

// BindSubscription stores the session's bus subscription handle. It refuses
// a second bind so subscribe-once holds even if two identifies race.
func (r *Registry) BindSubscription(sid domain.SessionID, sub core.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok || s.sub != nil {
		return false
	}
	s.sub = sub
	return true
}

// Subscribed reports whether the session already holds a bus subscription.
func (r *Registry) Subscribed(sid domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return ok && s.sub != nil
}

// TakeSubscription removes and returns the subscription handle, if any.
// The second take returns nil, which makes unsubscribe-once trivial.
func (r *Registry) TakeSubscription(sid domain.SessionID) core.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok || s.sub == nil {
		return nil
	}
	sub := s.sub
	s.sub = nil
	return sub
}

// SessionCount is used by the API and tests.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
