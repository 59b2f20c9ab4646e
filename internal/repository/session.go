package repository

import (
	"context"

	"login-portal/internal/domain"
)

// Driver identifiers for SessionStore implementations.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// SessionStore persists SessionRecords keyed by browser session id.
type SessionStore interface {
	Init(ctx context.Context) error
	// Create stores rec under id, replacing any previous record.
	Create(ctx context.Context, id string, rec domain.SessionRecord) error
	// Read returns the record for id; ok is false when none is stored.
	Read(ctx context.Context, id string) (rec domain.SessionRecord, ok bool, err error)
	// Clear removes the record for id. Clearing a missing record is not an error.
	Clear(ctx context.Context, id string) error
	Close() error
}
