package repository

import (
	"context"

	"vividly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]entity.Session, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	s.IsActive = true
	return conn(ctx, r.db).Create(s).Error
}

func (r *sessionRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	var sessions []entity.Session
	err := conn(ctx, r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// RevokeAll reports how many sessions were still active; a repeated call
// returns zero.
func (r *sessionRepository) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := conn(ctx, r.db).
		Model(&entity.Session{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
