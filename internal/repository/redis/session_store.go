package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "advisor:session:"

// SessionStore persists active sessions in Redis so multiple instances
// can share them. Each session is one JSON value with a sliding TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ contract.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*store.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}

	var session store.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}
