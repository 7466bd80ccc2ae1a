package dto

import (
	"time"

	"vividly/internal/entity"
	"vividly/internal/repository"
	"vividly/internal/service"
)

type CreateProjectRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=200"`
	Description     *string  `json:"description" validate:"omitempty,max=1000"`
	VibeDescription string   `json:"vibe_description" validate:"required,min=10,max=2000"`
	Language        *string  `json:"language" validate:"omitempty,oneof=html react"`
	Framework       *string  `json:"framework" validate:"omitempty,max=50"`
	Tags            []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	IsPublic        bool     `json:"is_public"`
}

type UpdateProjectRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description     *string   `json:"description" validate:"omitempty,max=1000"`
	VibeDescription *string   `json:"vibe_description" validate:"omitempty,min=10,max=2000"`
	Status          *string   `json:"status" validate:"omitempty,max=50"`
	Language        *string   `json:"language" validate:"omitempty,oneof=html react"`
	Framework       *string   `json:"framework" validate:"omitempty,max=50"`
	CustomDomain    *string   `json:"custom_domain" validate:"omitempty,fqdn"`
	Tags            *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Collaborators   *[]string `json:"collaborators" validate:"omitempty,dive,uuid"`
	IsPublic        *bool     `json:"is_public"`
}

type GenerateCodeRequest struct {
	VibeDescription *string `json:"vibe_description" validate:"omitempty,min=10,max=2000"`
	Language        *string `json:"language" validate:"omitempty,oneof=html react vue svelte"`
}

// EnableAnalytics is a pointer so an omitted field keeps the default of true.
type PublishRequest struct {
	Domain          *string `json:"domain" validate:"omitempty,fqdn"`
	EnableAnalytics *bool   `json:"enable_analytics"`
}

type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=json zip tar"`
}

type ProjectResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	VibeDescription string     `json:"vibe_description"`
	Slug            string     `json:"slug"`
	Status          string     `json:"status"`
	Language        string     `json:"language"`
	Framework       *string    `json:"framework"`
	GeneratedCode   *string    `json:"generated_code"`
	PreviewURL      *string    `json:"preview_url"`
	LiveURL         *string    `json:"live_url"`
	CustomDomain    *string    `json:"custom_domain"`
	Tags            []string   `json:"tags"`
	Collaborators   []string   `json:"collaborators"`
	ViewsCount      int64      `json:"views_count"`
	LikesCount      int64      `json:"likes_count"`
	CommentsCount   int64      `json:"comments_count"`
	IsPublic        bool       `json:"is_public"`
	EnableAnalytics bool       `json:"enable_analytics"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PublishedAt     *time.Time `json:"published_at"`
}

func ProjectResponseFromEntity(project *entity.Project) ProjectResponse {
	tags := []string(project.Tags)
	if tags == nil {
		tags = []string{}
	}
	collaborators := []string(project.Collaborators)
	if collaborators == nil {
		collaborators = []string{}
	}
	return ProjectResponse{
		ID:              project.ID.String(),
		UserID:          project.UserID.String(),
		Name:            project.Name,
		Description:     project.Description,
		VibeDescription: project.VibeDescription,
		Slug:            project.Slug,
		Status:          string(project.Status),
		Language:        project.Language,
		Framework:       project.Framework,
		GeneratedCode:   project.GeneratedCode,
		PreviewURL:      project.PreviewURL,
		LiveURL:         project.LiveURL,
		CustomDomain:    project.CustomDomain,
		Tags:            tags,
		Collaborators:   collaborators,
		ViewsCount:      project.ViewsCount,
		LikesCount:      project.LikesCount,
		CommentsCount:   project.CommentsCount,
		IsPublic:        project.IsPublic,
		EnableAnalytics: project.EnableAnalytics,
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
		PublishedAt:     project.PublishedAt,
	}
}

func ProjectResponsesFromEntities(projects []entity.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, ProjectResponseFromEntity(&projects[i]))
	}
	return responses
}

type ProjectListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Projects []ProjectResponse `json:"projects"`
}

func ProjectListResponseFromPage(page *service.ProjectPage) ProjectListResponse {
	return ProjectListResponse{
		Total:    page.Total,
		Page:     page.Page,
		Limit:    page.Limit,
		Projects: ProjectResponsesFromEntities(page.Projects),
	}
}

type ProjectSearchResponse struct {
	Total   int               `json:"total"`
	Results []ProjectResponse `json:"results"`
}

type GenerateCodeResponse struct {
	ProjectID     string  `json:"project_id"`
	Status        string  `json:"status"`
	GeneratedCode string  `json:"generated_code"`
	PreviewURL    *string `json:"preview_url"`
	EstimatedTime float64 `json:"estimated_time"`
}

func GenerateCodeResponseFromResult(result *service.GenerateCodeResult) GenerateCodeResponse {
	return GenerateCodeResponse{
		ProjectID:     result.Project.ID.String(),
		Status:        string(result.Project.Status),
		GeneratedCode: result.GeneratedCode,
		PreviewURL:    result.PreviewURL,
		EstimatedTime: result.ElapsedTime.Seconds(),
	}
}

type PublishResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	LiveURL   string `json:"live_url"`
	Domain    string `json:"domain"`
}

func PublishResponseFromEntity(project *entity.Project) PublishResponse {
	response := PublishResponse{
		ProjectID: project.ID.String(),
		Status:    string(project.Status),
	}
	if project.LiveURL != nil {
		response.LiveURL = *project.LiveURL
	}
	if project.CustomDomain != nil {
		response.Domain = *project.CustomDomain
	}
	return response
}

type DuplicateResponse struct {
	OriginalID string          `json:"original_id"`
	NewID      string          `json:"new_id"`
	NewProject ProjectResponse `json:"new_project"`
}

type ExportResponse struct {
	ProjectID string    `json:"project_id"`
	ExportURL string    `json:"export_url"`
	Format    string    `json:"format"`
	FileName  string    `json:"file_name"`
	Size      float64   `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func ExportResponseFrom(export *service.ProjectExport) ExportResponse {
	return ExportResponse{
		ProjectID: export.ProjectID,
		ExportURL: export.URL,
		Format:    export.Format,
		FileName:  export.FileName,
		Size:      float64(export.Size) / (1024 * 1024),
		CreatedAt: export.CreatedAt,
	}
}

type ProjectStatsResponse struct {
	TotalProjects     int64 `json:"total_projects"`
	PublishedProjects int64 `json:"published_projects"`
	GeneratedProjects int64 `json:"generated_projects"`
	DraftProjects     int64 `json:"draft_projects"`
	ArchivedProjects  int64 `json:"archived_projects"`
	TotalViews        int64 `json:"total_views"`
	TotalLikes        int64 `json:"total_likes"`
}

func ProjectStatsResponseFrom(stats *repository.ProjectStats) ProjectStatsResponse {
	return ProjectStatsResponse{
		TotalProjects:     stats.Total,
		PublishedProjects: stats.Published,
		GeneratedProjects: stats.Generated,
		DraftProjects:     stats.Draft,
		ArchivedProjects:  stats.Archived,
		TotalViews:        stats.TotalViews,
		TotalLikes:        stats.TotalLikes,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}
