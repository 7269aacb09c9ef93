package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rec := domain.SessionRecord{
		SessionID: "s1",
		Title:     "Pairing",
		HostID:    "host-token",
		HostName:  "Ann",
		Status:    domain.StatusActive,
		Link:      "http://localhost:5000/session/s1",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Find(ctx, "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != rec.Title || got.HostID != rec.HostID || got.Status != domain.StatusActive {
		t.Errorf("record mismatch: %+v", got)
	}

	if err := s.SetStatus(ctx, "s1", domain.StatusEnded); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ = s.Find(ctx, "s1")
	if got.Status != domain.StatusEnded {
		t.Errorf("expected ended, got %s", got.Status)
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Find(ctx, "s1"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Find(ctx, "ghost"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("find: expected ErrRecordNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "ghost"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("delete: expected ErrRecordNotFound, got %v", err)
	}
	if err := s.SetStatus(ctx, "ghost", domain.StatusEnded); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("set status: expected ErrRecordNotFound, got %v", err)
	}
}

func TestStore_DuplicateCreate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rec := domain.SessionRecord{SessionID: "s1", Title: "x", HostID: "h", Status: domain.StatusActive}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, rec); err == nil {
		t.Error("duplicate session_id must fail")
	}
}
