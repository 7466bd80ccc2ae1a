package repository

import (
	"context"
	"errors"
	"time"

	"vividly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStats struct {
	Total            int64
	Active           int64
	Inactive         int64
	VerifiedEmails   int64
	TwoFactorEnabled int64
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	VerifyEmail(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
	Search(ctx context.Context, query string, limit int) ([]entity.User, error)
	Stats(ctx context.Context) (*UserStats, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return conn(ctx, r.db).Create(user).Error
}

// FindByID and FindByEmail do not filter on is_active; callers decide how
// an inactive account is reported.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, r.db).
		Where("id = ?", id).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, r.db).
		Where("email = ?", email).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return conn(ctx, r.db).Save(user).Error
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return conn(ctx, r.db).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("is_active", active).
		Error
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return conn(ctx, r.db).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).
		Error
}

func (r *userRepository) VerifyEmail(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("email_verified", true).
		Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).
		Where("id = ?", id).
		Delete(&entity.User{}).
		Error
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&entity.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	query := conn(ctx, r.db).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]entity.User, error) {
	pattern := containsPattern(query)
	var users []entity.User
	q := conn(ctx, r.db).
		Where(`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Stats(ctx context.Context) (*UserStats, error) {
	var stats UserStats
	err := conn(ctx, r.db).
		Model(&entity.User{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN is_active THEN 0 ELSE 1 END), 0) AS inactive,
			COALESCE(SUM(CASE WHEN email_verified THEN 1 ELSE 0 END), 0) AS verified_emails,
			COALESCE(SUM(CASE WHEN two_factor_enabled THEN 1 ELSE 0 END), 0) AS two_factor_enabled`).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
