package implementation

import (
	"context"

	"welding-recommender-be/internal/entity"
	"welding-recommender-be/internal/repository/contract"

	"gorm.io/gorm"
)

type SessionArchiveRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionArchiveRepository(db *gorm.DB) contract.SessionArchiveRepository {
	return &SessionArchiveRepositoryImpl{db: db}
}

func (r *SessionArchiveRepositoryImpl) Create(ctx context.Context, archive *entity.SessionArchive) error {
	return r.db.WithContext(ctx).Create(archive).Error
}

func (r *SessionArchiveRepositoryImpl) FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.SessionArchive, error) {
	var archives []*entity.SessionArchive
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("archived_at ASC").
		Find(&archives).Error
	if err != nil {
		return nil, err
	}
	return archives, nil
}

type TransitionRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewTransitionRecordRepository(db *gorm.DB) contract.TransitionRecordRepository {
	return &TransitionRecordRepositoryImpl{db: db}
}

func (r *TransitionRecordRepositoryImpl) Create(ctx context.Context, record *entity.TransitionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *TransitionRecordRepositoryImpl) FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.TransitionRecord, error) {
	var records []*entity.TransitionRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
