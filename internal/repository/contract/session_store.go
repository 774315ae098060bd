package contract

import (
	"context"
	"errors"

	"welding-recommender-be/pkg/store"
)

// ErrSessionNotFound is returned by stores when a session id is unknown
// or has expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds active sessions between turns. The orchestrator
// reads a session at the start of a turn and writes it back at the end,
// as one unit; partial turn state must never become visible.
type SessionStore interface {
	Get(ctx context.Context, id string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
}
