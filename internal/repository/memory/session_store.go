package memory

import (
	"context"
	"fmt"
	"sync"

	"login-portal/internal/domain"
	"login-portal/internal/repository"
)

// SessionStore keeps records in process memory. Records vanish on restart.
type SessionStore struct {
	mu    sync.RWMutex
	items map[string]domain.SessionRecord
}

func NewSessionStore() repository.SessionStore {
	return &SessionStore{items: make(map[string]domain.SessionRecord)}
}

func (s *SessionStore) Init(context.Context) error { return nil }

func (s *SessionStore) Create(_ context.Context, id string, rec domain.SessionRecord) error {
	if id == "" {
		return fmt.Errorf("session id required")
	}
	s.mu.Lock()
	s.items[id] = rec
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Read(_ context.Context, id string) (domain.SessionRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.items[id]
	s.mu.RUnlock()
	if !ok || !rec.IsAuthenticated {
		return domain.SessionRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *SessionStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Len reports how many records are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *SessionStore) Close() error { return nil }
