package membus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kodesesh/backend/internal/domain"
)

func waitEvent(t *testing.T, ch <-chan domain.SyncEvent) domain.SyncEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sync event")
		return domain.SyncEvent{}
	}
}

func TestHub_CrossInstanceDelivery(t *testing.T) {
	hub := NewHub()
	east := hub.Endpoint("east")
	west := hub.Endpoint("west")

	got := make(chan domain.SyncEvent, 4)
	sub, err := west.Subscribe("s1", func(ev domain.SyncEvent) { got <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := east.Publish("s1", "code-update", json.RawMessage(`{"code":"x"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := waitEvent(t, got)
	if ev.EventType != "code-update" || ev.Origin != "east" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHub_NoEcho(t *testing.T) {
	hub := NewHub()
	east := hub.Endpoint("east")

	got := make(chan domain.SyncEvent, 4)
	if _, err := east.Subscribe("s1", func(ev domain.SyncEvent) { got <- ev }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := east.Publish("s1", "code-update", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-got:
		t.Errorf("an instance must never see its own events, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SessionScoping(t *testing.T) {
	hub := NewHub()
	east := hub.Endpoint("east")
	west := hub.Endpoint("west")

	got := make(chan domain.SyncEvent, 4)
	if _, err := west.Subscribe("s1", func(ev domain.SyncEvent) { got <- ev }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := east.Publish("s2", "code-update", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-got:
		t.Errorf("subscription must be session-scoped, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	east := hub.Endpoint("east")
	west := hub.Endpoint("west")

	got := make(chan domain.SyncEvent, 4)
	sub, _ := west.Subscribe("s1", func(ev domain.SyncEvent) { got <- ev })

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	// Double unsubscribe stays safe.
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("second unsubscribe: %v", err)
	}

	_ = east.Publish("s1", "code-update", json.RawMessage(`{}`))
	select {
	case ev := <-got:
		t.Errorf("unsubscribed endpoint must not receive events, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ResyncRequests(t *testing.T) {
	hub := NewHub()
	east := hub.Endpoint("east")
	west := hub.Endpoint("west")

	got := make(chan domain.ResyncRequest, 4)
	if _, err := west.SubscribeResync(func(req domain.ResyncRequest) { got <- req }); err != nil {
		t.Fatalf("subscribe resync: %v", err)
	}

	if err := east.RequestResync(domain.ResyncRequest{SessionID: "s1", ParticipantID: "A"}); err != nil {
		t.Fatalf("request resync: %v", err)
	}

	select {
	case req := <-got:
		if req.SessionID != "s1" || req.ParticipantID != "A" {
			t.Errorf("unexpected request %+v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for resync request")
	}
}

// A lone endpoint is the local-only degradation: publishes go nowhere and
// never error.
func TestHub_LoneEndpoint(t *testing.T) {
	bus := NewHub().Endpoint("only")
	if err := bus.Publish("s1", "code-update", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("lone publish must not fail: %v", err)
	}
	if err := bus.RequestResync(domain.ResyncRequest{SessionID: "s1"}); err != nil {
		t.Fatalf("lone resync must not fail: %v", err)
	}
}
