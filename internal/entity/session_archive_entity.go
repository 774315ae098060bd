package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionArchive is the durable record of a finished (finalized or reset)
// advisor session. The selection record and requirements are stored as
// marshaled JSON; the archive is write-once.
type SessionArchive struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId    string    `gorm:"index"`
	Language     string
	Status       string // "finalized" | "reset"
	Selections   string `gorm:"type:jsonb"`
	Requirements string `gorm:"type:jsonb"`
	Turns        int
	CreatedAt    time.Time
	ArchivedAt   time.Time
}

// TransitionRecord is one rendered state transition of a session,
// including auto-skips, persisted by the message renderer for transcript
// and analytics purposes.
type TransitionRecord struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId        string    `gorm:"index"`
	PreviousCategory string
	NewCategory      string
	Skipped          bool
	SkipReason       string
	RenderedMessage  string
	Language         string
	CreatedAt        time.Time
}
