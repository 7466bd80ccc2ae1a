package repository

import (
	"context"
	"errors"

	"vividly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStats struct {
	Total      int64
	Draft      int64
	Generated  int64
	Published  int64
	Archived   int64
	TotalViews int64
	TotalLikes int64
}

type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Project, int64, error)
	Update(ctx context.Context, project *entity.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, userID uuid.UUID, query string, status string, limit int) ([]entity.Project, error)
	StatsByUser(ctx context.Context, userID uuid.UUID) (*ProjectStats, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *entity.Project) error {
	return conn(ctx, r.db).Create(project).Error
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	err := conn(ctx, r.db).
		Where("id = ?", id).
		First(&project).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&entity.Project{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Project, int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&entity.Project{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []entity.Project
	query := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) Update(ctx context.Context, project *entity.Project) error {
	return conn(ctx, r.db).Save(project).Error
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).
		Where("id = ?", id).
		Delete(&entity.Project{}).
		Error
}

func (r *projectRepository) Search(ctx context.Context, userID uuid.UUID, query string, status string, limit int) ([]entity.Project, error) {
	pattern := containsPattern(query)
	q := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\'`, pattern, pattern)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var projects []entity.Project
	if err := q.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepository) StatsByUser(ctx context.Context, userID uuid.UUID) (*ProjectStats, error) {
	var rows []struct {
		Status string
		Count  int64
		Views  int64
		Likes  int64
	}
	err := conn(ctx, r.db).
		Model(&entity.Project{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(views_count), 0) AS views, COALESCE(SUM(likes_count), 0) AS likes").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &ProjectStats{}
	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalViews += row.Views
		stats.TotalLikes += row.Likes
		switch entity.ProjectStatus(row.Status) {
		case entity.ProjectDraft:
			stats.Draft += row.Count
		case entity.ProjectGenerated:
			stats.Generated += row.Count
		case entity.ProjectPublished:
			stats.Published += row.Count
		case entity.ProjectArchived:
			stats.Archived += row.Count
		}
	}
	return stats, nil
}
