package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")
var ErrConnClosed = errors.New("connection closed")

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// connTag is the (session, participant) identity recorded at identify time.
// Disconnect cleanup reads it from the connection itself, never from
// client-supplied state.
type connTag struct {
	sid domain.SessionID
	pid domain.ParticipantID
}

// wsConn is one live client connection: socket + buffered outbound queue.
type wsConn struct {
	ws   WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
	tag    connTag
}

func newWSConn(ws WSConn, sendBuf int) *wsConn {
	if sendBuf <= 0 {
		sendBuf = 64
	}
	return &wsConn{ws: ws, send: make(chan core.Frame, sendBuf)}
}

// TrySend queues a frame without blocking. A full queue is backpressure,
// not a wait: slow readers drop frames rather than stall the room.
func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

func (c *wsConn) setTag(sid domain.SessionID, pid domain.ParticipantID) {
	c.mu.Lock()
	c.tag = connTag{sid: sid, pid: pid}
	c.mu.Unlock()
}

func (c *wsConn) getTag() connTag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tag
}
