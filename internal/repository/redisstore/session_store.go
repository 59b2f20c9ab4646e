package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"login-portal/internal/domain"
	"login-portal/internal/repository"
)

// Config captures connection options.
type Config struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	Prefix    string
	Retention time.Duration
}

// SessionStore keeps each record as a redis hash holding the persisted layout.
type SessionStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewSessionStore constructs a redis-backed session store.
func NewSessionStore(cfg Config) (repository.SessionStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "login:session:"
	}
	return &SessionStore{
		client:    client,
		prefix:    prefix,
		retention: cfg.Retention,
	}, nil
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

func (s *SessionStore) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *SessionStore) Create(ctx context.Context, id string, rec domain.SessionRecord) error {
	if id == "" {
		return fmt.Errorf("session id required")
	}
	key := s.key(id)
	values := make([]any, 0, 6)
	for k, v := range rec.Fields() {
		values = append(values, k, v)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Read(ctx context.Context, id string) (domain.SessionRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domain.SessionRecord{}, false, fmt.Errorf("read session: %w", err)
	}
	if len(fields) == 0 {
		return domain.SessionRecord{}, false, nil
	}
	rec, ok := domain.RecordFromFields(fields)
	return rec, ok, nil
}

func (s *SessionStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
