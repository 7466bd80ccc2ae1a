package repository

import (
	"context"
	"errors"
	"time"

	"vividly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *entity.VerificationToken) error
	FindValid(ctx context.Context, tokenHash string, tokenType entity.VerificationType, now time.Time) (*entity.VerificationToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	// InvalidateOutstanding consumes every unused token of the given type for
	// the user, so only the most recently mailed link works.
	InvalidateOutstanding(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationType, at time.Time) error
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, t *entity.VerificationToken) error {
	return conn(ctx, r.db).Create(t).Error
}

func (r *verificationTokenRepository) FindValid(
	ctx context.Context,
	tokenHash string,
	tokenType entity.VerificationType,
	now time.Time,
) (*entity.VerificationToken, error) {

	var token entity.VerificationToken
	err := conn(ctx, r.db).
		Where("token_hash = ? AND type = ? AND used_at IS NULL AND expires_at > ?", tokenHash, tokenType, now).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *verificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return conn(ctx, r.db).
		Model(&entity.VerificationToken{}).
		Where("id = ?", id).
		Update("used_at", at).
		Error
}

func (r *verificationTokenRepository) InvalidateOutstanding(
	ctx context.Context,
	userID uuid.UUID,
	tokenType entity.VerificationType,
	at time.Time,
) error {
	return conn(ctx, r.db).
		Model(&entity.VerificationToken{}).
		Where("user_id = ? AND type = ? AND used_at IS NULL", userID, tokenType).
		Update("used_at", at).
		Error
}
