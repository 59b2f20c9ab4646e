package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"login-portal/internal/domain"
	"login-portal/internal/repository"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	is_authenticated TEXT,
	username TEXT NOT NULL,
	login_time TEXT NOT NULL
);
`

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) repository.SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *SessionStore) Create(ctx context.Context, id string, rec domain.SessionRecord) error {
	if id == "" {
		return fmt.Errorf("session id required")
	}
	fields := rec.Fields()

	var flag sql.NullString
	if v, ok := fields[domain.KeyIsAuthenticated]; ok {
		flag = sql.NullString{String: v, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, is_authenticated, username, login_time)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	is_authenticated = excluded.is_authenticated,
	username = excluded.username,
	login_time = excluded.login_time`,
		id,
		flag,
		fields[domain.KeyUsername],
		fields[domain.KeyLoginTime],
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Read(ctx context.Context, id string) (domain.SessionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT is_authenticated, username, login_time
FROM sessions
WHERE id = ?`,
		id,
	)

	var (
		flag      sql.NullString
		username  string
		loginTime string
	)
	if err := row.Scan(&flag, &username, &loginTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SessionRecord{}, false, nil
		}
		return domain.SessionRecord{}, false, fmt.Errorf("scan session: %w", err)
	}

	fields := map[string]string{
		domain.KeyUsername:  username,
		domain.KeyLoginTime: loginTime,
	}
	if flag.Valid {
		fields[domain.KeyIsAuthenticated] = flag.String
	}
	rec, ok := domain.RecordFromFields(fields)
	return rec, ok, nil
}

func (s *SessionStore) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close is a no-op; the *sql.DB belongs to the caller.
func (s *SessionStore) Close() error { return nil }
