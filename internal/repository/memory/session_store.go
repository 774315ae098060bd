package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionStore is the in-process session backend, used for development
// and single-instance deployments. Sessions are held serialized, the
// same representation the Redis store uses: a caller's in-place edits
// reach the store only through Save, so a failed turn leaves the stored
// session untouched. Expired sessions are purged periodically.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

var _ contract.SessionStore = (*SessionStore)(nil)

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (s *SessionStore) Get(_ context.Context, id string) (*store.Session, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, contract.ErrSessionNotFound
	}
	var session store.Session
	if err := json.Unmarshal(x.([]byte), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SessionStore) Save(_ context.Context, session *store.Session) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	s.cache.Set(session.ID, raw, cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}
