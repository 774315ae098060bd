package store

import (
	"time"

	"welding-recommender-be/pkg/guide"
)

// Turn is one entry of the conversation history kept on the session.
type Turn struct {
	Role      string    `json:"role"` // "user" | "advisor"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the full per-conversation state: the current category
// pointer, the evolving selection record, the extracted requirements and
// the conversation history. It is owned by exactly one in-flight request
// at a time; the service serializes access per session id. The store
// layer persists it between turns as one unit, so a turn's changes are
// either fully visible to the next turn or not at all.
type Session struct {
	ID           string             `json:"id"`
	Language     string             `json:"language"`
	Current      guide.Category     `json:"current"`
	Selections   guide.Selections   `json:"selections"`
	Requirements guide.Requirements `json:"requirements"`

	// Done records explicit skip/done signals for multi-select categories.
	Done map[guide.Category]bool `json:"done"`

	History   []Turn    `json:"history"`
	Finalized bool      `json:"finalized"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session positioned at the root category.
func NewSession(id, language string, root guide.Category) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Language:     language,
		Current:      root,
		Selections:   guide.NewSelections(),
		Requirements: make(guide.Requirements),
		Done:         make(map[guide.Category]bool),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Terminated reports whether this session should accept no further work.
func (s *Session) Terminated() bool {
	return s.Finalized
}

// AppendTurn records a conversation entry.
func (s *Session) AppendTurn(role, text string) {
	s.History = append(s.History, Turn{Role: role, Text: text, CreatedAt: time.Now()})
}
