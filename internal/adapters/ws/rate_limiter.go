package ws

import (
	"sync"
	"time"
)

// JoinLimiter caps how often a single connection may (re)join rooms inside
// a sliding window, damping reconnect storms from misbehaving clients.
type JoinLimiter struct {
	mu       sync.Mutex
	history  map[*wsConn][]time.Time
	limit    int
	interval time.Duration
}

func NewJoinLimiter(limit int, interval time.Duration) *JoinLimiter {
	return &JoinLimiter{
		history:  make(map[*wsConn][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *JoinLimiter) Allow(c *wsConn) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[c]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[c] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[c] = fresh
	return true
}

// Forget drops a connection's history once it is gone.
func (rl *JoinLimiter) Forget(c *wsConn) {
	rl.mu.Lock()
	delete(rl.history, c)
	rl.mu.Unlock()
}
