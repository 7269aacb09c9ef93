package app

import (
	"testing"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

func relayFixture(t *testing.T) (*Relay, *fakeConn, *fakeConn, *fakeConn) {
	t.Helper()
	r := NewRegistry()
	r.Ensure("s1")
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.UpsertParticipant("s1", member(t, "A", "Ann", true, a))
	r.UpsertParticipant("s1", member(t, "B", "Ben", false, b))
	r.UpsertParticipant("s1", member(t, "C", "Cay", false, c))
	return NewRelay(r), a, b, c
}

func TestRelay_DirectDelivery(t *testing.T) {
	rl, a, b, c := relayFixture(t)

	frame := core.Frame(`{"type":"rtc-offer","sessionId":"s1","senderId":"A","receiverId":"B","sdp":"..."}`)
	got := rl.Relay(domain.SignalEnvelope{SessionID: "s1", SenderID: "A", ReceiverID: "B"}, frame)

	if got != DeliveredDirect {
		t.Fatalf("expected direct delivery, got %v", got)
	}
	if b.sent() != 1 {
		t.Errorf("receiver should get exactly one frame, got %d", b.sent())
	}
	if a.sent() != 0 || c.sent() != 0 {
		t.Errorf("bystanders must not receive a direct frame (a=%d c=%d)", a.sent(), c.sent())
	}
}

func TestRelay_BroadcastFallback(t *testing.T) {
	t.Run("unknown receiver", func(t *testing.T) {
		rl, a, b, c := relayFixture(t)
		frame := core.Frame(`{"type":"rtc-ice","sessionId":"s1","senderId":"A","receiverId":"ghost"}`)

		got := rl.Relay(domain.SignalEnvelope{SessionID: "s1", SenderID: "A", ReceiverID: "ghost"}, frame)
		if got != DeliveredBroadcast {
			t.Fatalf("expected broadcast fallback, got %v", got)
		}
		if a.sent() != 0 {
			t.Error("sender must be excluded from the fallback")
		}
		if b.sent() != 1 || c.sent() != 1 {
			t.Errorf("all other members should receive the frame (b=%d c=%d)", b.sent(), c.sent())
		}
	})

	t.Run("stale receiver handle", func(t *testing.T) {
		rl, a, b, c := relayFixture(t)
		b.fail = true

		got := rl.Relay(domain.SignalEnvelope{SessionID: "s1", SenderID: "A", ReceiverID: "B"}, core.Frame(`{}`))
		if got != DeliveredBroadcast {
			t.Fatalf("expected broadcast fallback on send failure, got %v", got)
		}
		if c.sent() != 1 {
			t.Errorf("healthy bystander should receive the fallback, got %d", c.sent())
		}
		if a.sent() != 0 {
			t.Error("sender must stay excluded")
		}
		_ = b
	})

	t.Run("absent session", func(t *testing.T) {
		rl, _, _, _ := relayFixture(t)
		got := rl.Relay(domain.SignalEnvelope{SessionID: "other", SenderID: "A", ReceiverID: "B"}, core.Frame(`{}`))
		if got != DeliveredNone {
			t.Fatalf("expected no delivery for absent session, got %v", got)
		}
	})
}
