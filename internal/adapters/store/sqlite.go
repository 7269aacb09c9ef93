// Package store persists session records in sqlite. Only the record-level
// operations the engine consumes live here; live session state never
// touches disk.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	host_id    TEXT NOT NULL,
	host_name  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'active',
	link       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
`

// Store implements core.SessionStore over sqlite.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sessions schema: %w", err)
	}
	log.Info().Str("module", "store").Str("path", path).Msg("session store ready")
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, rec domain.SessionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title, host_id, host_name, status, link, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.SessionID), rec.Title, string(rec.HostID), rec.HostName,
		string(rec.Status), rec.Link, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, sid domain.SessionID) (domain.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, title, host_id, host_name, status, link, created_at
		 FROM sessions WHERE session_id = ?`, string(sid))

	var rec domain.SessionRecord
	var id, hostID, status string
	err := row.Scan(&id, &rec.Title, &hostID, &rec.HostName, &status, &rec.Link, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionRecord{}, core.ErrRecordNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("find session %s: %w", sid, err)
	}
	rec.SessionID = domain.SessionID(id)
	rec.HostID = domain.ParticipantID(hostID)
	rec.Status = domain.SessionStatus(status)
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, sid domain.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, string(sid))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, sid domain.SessionID, status domain.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE session_id = ?`, string(status), string(sid))
	if err != nil {
		return fmt.Errorf("update session %s: %w", sid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
