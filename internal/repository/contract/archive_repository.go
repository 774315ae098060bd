package contract

import (
	"context"

	"welding-recommender-be/internal/entity"
)

type SessionArchiveRepository interface {
	Create(ctx context.Context, archive *entity.SessionArchive) error
	FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.SessionArchive, error)
}

type TransitionRecordRepository interface {
	Create(ctx context.Context, record *entity.TransitionRecord) error
	FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.TransitionRecord, error)
}
