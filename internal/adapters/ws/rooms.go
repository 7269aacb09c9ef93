package ws

import (
	"sync"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// roomSet is the gateway's connection set per session. It holds every
// attached connection, identified or not, so a client that joined but never
// announced identity still receives room fanout. Participant identity lives
// in the registry, not here.
type roomSet struct {
	mu     sync.RWMutex
	rooms  map[domain.SessionID]map[*wsConn]struct{}
	joined map[*wsConn]domain.SessionID
}

func newRoomSet() *roomSet {
	return &roomSet{
		rooms:  make(map[domain.SessionID]map[*wsConn]struct{}),
		joined: make(map[*wsConn]domain.SessionID),
	}
}

// Join attaches c to sid. A connection rides one room at a time; joining a
// second session detaches it from the first.
func (rs *roomSet) Join(sid domain.SessionID, c *wsConn) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if prev, ok := rs.joined[c]; ok && prev != sid {
		if conns, ok := rs.rooms[prev]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(rs.rooms, prev)
			}
		}
	}
	conns, ok := rs.rooms[sid]
	if !ok {
		conns = make(map[*wsConn]struct{})
		rs.rooms[sid] = conns
	}
	conns[c] = struct{}{}
	rs.joined[c] = sid
}

// Detach removes c from whatever room it joined and reports which one.
func (rs *roomSet) Detach(c *wsConn) (domain.SessionID, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	sid, ok := rs.joined[c]
	if !ok {
		return "", false
	}
	delete(rs.joined, c)
	if conns, ok := rs.rooms[sid]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(rs.rooms, sid)
		}
	}
	return sid, true
}

// Broadcast fans a frame out to every connection in the room except the
// originator. Send errors are backpressure drops, counted but not fatal.
func (rs *roomSet) Broadcast(sid domain.SessionID, except *wsConn, frame core.Frame) (sent int) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for c := range rs.rooms[sid] {
		if c == except {
			continue
		}
		if err := c.TrySend(frame); err == nil {
			sent++
		}
	}
	return sent
}

// ConnCount is used by tests and the API.
func (rs *roomSet) ConnCount(sid domain.SessionID) int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rooms[sid])
}
