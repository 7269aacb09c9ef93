package app

import (
	"sync"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// fakeConn records frames instead of writing to a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return ErrFakeSend
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

var ErrFakeSend = errSend{}

type errSend struct{}

func (errSend) Error() string { return "send failed" }

// fakeSub counts unsubscribes.
type fakeSub struct {
	mu    sync.Mutex
	count int
}

func (f *fakeSub) Unsubscribe() error {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	return nil
}

func (f *fakeSub) unsubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeNotifier records departure notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	left  []domain.ParticipantID
	lists [][]core.ParticipantDTO
}

func (f *fakeNotifier) ParticipantLeft(_ domain.SessionID, pid domain.ParticipantID, remaining []core.ParticipantDTO) {
	f.mu.Lock()
	f.left = append(f.left, pid)
	f.lists = append(f.lists, remaining)
	f.mu.Unlock()
}

func member(t interface {
	Fatalf(format string, args ...any)
}, id, name string, host bool, conn core.Conn) core.MemberSession {
	p, err := domain.NewParticipant(domain.ParticipantID(id), name, host)
	if err != nil {
		t.Fatalf("NewParticipant(%q): %v", id, err)
	}
	return core.NewMemberSession(p, conn)
}
