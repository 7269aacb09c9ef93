package app

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

func TestRegistry_Ensure(t *testing.T) {
	r := NewRegistry()

	t.Run("creates session once", func(t *testing.T) {
		r.Ensure("s1")
		r.Ensure("s1")
		if got := r.SessionCount(); got != 1 {
			t.Fatalf("expected 1 session, got %d", got)
		}
	})

	t.Run("absent session reads", func(t *testing.T) {
		if _, ok := r.Code("missing"); ok {
			t.Error("Code should report absent session")
		}
		if list := r.ParticipantList("missing"); len(list) != 0 {
			t.Errorf("expected empty list, got %d entries", len(list))
		}
	})
}

func TestRegistry_UpsertParticipant(t *testing.T) {
	r := NewRegistry()
	r.Ensure("s1")

	t.Run("identify twice keeps one entry with latest state", func(t *testing.T) {
		first := &fakeConn{}
		second := &fakeConn{}
		r.UpsertParticipant("s1", member(t, "alice", "Alice", false, first))
		r.UpsertParticipant("s1", member(t, "alice", "Alice B.", true, second))

		list := r.ParticipantList("s1")
		if len(list) != 1 {
			t.Fatalf("expected 1 participant, got %d", len(list))
		}
		if list[0].Name != "Alice B." || !list[0].IsHost {
			t.Errorf("expected latest name/host flag, got %+v", list[0])
		}

		ms, ok := r.Member("s1", "alice")
		if !ok {
			t.Fatal("participant missing after upsert")
		}
		if ms.Signal() != second {
			t.Error("rejoin must overwrite the connection handle")
		}
	})

	t.Run("upsert into absent session fails", func(t *testing.T) {
		if r.UpsertParticipant("nope", member(t, "bob", "Bob", false, &fakeConn{})) {
			t.Error("expected upsert into absent session to report false")
		}
	})
}

func TestRegistry_RemoveParticipant(t *testing.T) {
	r := NewRegistry()
	r.Ensure("s1")
	r.UpsertParticipant("s1", member(t, "a", "A", true, &fakeConn{}))
	r.UpsertParticipant("s1", member(t, "b", "B", false, &fakeConn{}))

	remaining, ok := r.RemoveParticipant("s1", "a")
	if !ok || remaining != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", remaining, ok)
	}

	// Second removal of the same id is a no-op.
	remaining, ok = r.RemoveParticipant("s1", "a")
	if ok {
		t.Error("expected repeated removal to report false")
	}
	if remaining != 1 {
		t.Errorf("expected remaining to stay 1, got %d", remaining)
	}
}

func TestRegistry_CodeAndLanguage(t *testing.T) {
	r := NewRegistry()
	r.Ensure("s1")

	changed, ok := r.SetCode("s1", "x = 1")
	if !ok || !changed {
		t.Fatalf("first write should change state, got changed=%v ok=%v", changed, ok)
	}
	// Duplicate delivery of the same state must be a no-op.
	changed, ok = r.SetCode("s1", "x = 1")
	if !ok || changed {
		t.Fatalf("duplicate write should not change state, got changed=%v ok=%v", changed, ok)
	}

	if changed, _ = r.SetLanguage("s1", "python"); !changed {
		t.Error("language write should change state")
	}
	if changed, _ = r.SetLanguage("s1", "python"); changed {
		t.Error("duplicate language write should not change state")
	}

	lang, _ := r.Language("s1")
	if lang != "python" {
		t.Errorf("expected python, got %q", lang)
	}
}

func TestRegistry_MediaFlags(t *testing.T) {
	r := NewRegistry()
	r.Ensure("s1")
	r.UpsertParticipant("s1", member(t, "a", "A", false, &fakeConn{}))

	if !r.SetMediaFlag("s1", "a", domain.MediaAudio, false) {
		t.Fatal("toggle failed for live participant")
	}
	list := r.ParticipantList("s1")
	if !list[0].Muted {
		t.Error("audio off must set Muted")
	}

	if r.SetMediaFlag("s1", "ghost", domain.MediaVideo, true) {
		t.Error("toggle for unknown participant must fail")
	}
	if r.SetMediaFlag("s1", "a", "hologram", true) {
		t.Error("unknown media kind must fail")
	}
}

func TestRegistry_SubscriptionHandle(t *testing.T) {
	r := NewRegistry()
	r.Ensure("s1")
	sub := &fakeSub{}

	if !r.BindSubscription("s1", sub) {
		t.Fatal("first bind must succeed")
	}
	if r.BindSubscription("s1", &fakeSub{}) {
		t.Error("second bind must be refused")
	}
	if !r.Subscribed("s1") {
		t.Error("session should report subscribed")
	}

	if got := r.TakeSubscription("s1"); got != sub {
		t.Fatal("take must return the bound handle")
	}
	if got := r.TakeSubscription("s1"); got != nil {
		t.Error("second take must return nil")
	}
}

// Property: after any sequence of upserts there is at most one entry per
// (session, participant-identifier) pair.
func TestRegistry_UpsertUniqueness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("unique key per participant id", prop.ForAll(
		func(ids []int8) bool {
			r := NewRegistry()
			r.Ensure("s")
			seen := make(map[domain.ParticipantID]struct{})
			for _, n := range ids {
				pid := domain.ParticipantID(fmt.Sprintf("p%d", n))
				p, err := domain.NewParticipant(pid, "name", false)
				if err != nil {
					return false
				}
				r.UpsertParticipant("s", core.NewMemberSession(p, &fakeConn{}))
				seen[pid] = struct{}{}
			}
			return len(r.ParticipantList("s")) == len(seen)
		},
		gen.SliceOf(gen.Int8()),
	))

	properties.TestingRun(t)
}
