package core

import (
	"context"
	"errors"

	"github.com/kodesesh/backend/internal/domain"
)

var ErrRecordNotFound = errors.New("session record not found")

// SessionStore is the durable session-record collaborator. The engine only
// ever creates, finds and deletes records; everything live stays in memory.
type SessionStore interface {
	Create(ctx context.Context, rec domain.SessionRecord) error
	Find(ctx context.Context, sid domain.SessionID) (domain.SessionRecord, error)
	Delete(ctx context.Context, sid domain.SessionID) error
	SetStatus(ctx context.Context, sid domain.SessionID, status domain.SessionStatus) error
	Close() error
}

// Executor is the opaque code-execution collaborator.
type Executor interface {
	Execute(ctx context.Context, language, source string) (string, error)
}
