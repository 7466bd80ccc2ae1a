package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"vividly/internal/entity"
	"vividly/internal/repository"
	"vividly/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ProjectConfig struct {
	PublicBaseURL string
	// Without a preview secret the preview URL points at the authenticated
	// API route and only works with a bearer header.
	Preview PreviewTokenSigner
}

type CreateProjectInput struct {
	Name            string
	Description     *string
	VibeDescription string
	Language        *string
	Framework       *string
	Tags            []string
	IsPublic        bool
}

// UpdateProjectInput applies only the non-nil fields. Status is written
// as given; no transition table is enforced.
type UpdateProjectInput struct {
	Name            *string
	Description     *string
	VibeDescription *string
	Status          *string
	Language        *string
	Framework       *string
	CustomDomain    *string
	Tags            *[]string
	Collaborators   *[]string
	IsPublic        *bool
}

type PublishInput struct {
	Domain          *string
	EnableAnalytics bool
}

type GenerateCodeResult struct {
	Project       *entity.Project
	GeneratedCode string
	PreviewURL    *string
	ElapsedTime   time.Duration
}

type ProjectPage struct {
	Projects []entity.Project
	Total    int64
	Page     int
	Limit    int
}

type ProjectService struct {
	tx       repository.Transactor
	projects repository.ProjectRepository
	codegen  *CodegenService
	exports  ExportStore
	clock    Clock
	config   ProjectConfig
	logger   logrus.FieldLogger
}

func NewProjectService(
	tx repository.Transactor,
	projects repository.ProjectRepository,
	codegen *CodegenService,
	exports ExportStore,
	clock Clock,
	config ProjectConfig,
	logger logrus.FieldLogger,
) *ProjectService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProjectService{
		tx:       tx,
		projects: projects,
		codegen:  codegen,
		exports:  exports,
		clock:    clock,
		config:   config,
		logger:   logger,
	}
}

func (s *ProjectService) Create(ctx context.Context, owner *entity.User, input CreateProjectInput) (*entity.Project, error) {
	slug, err := s.uniqueSlug(ctx, input.Name)
	if err != nil {
		return nil, internal("error creating project", err)
	}

	project := &entity.Project{
		UserID:          owner.ID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Slug:            slug,
		VibeDescription: input.VibeDescription,
		Status:          entity.ProjectDraft,
		Language:        LanguageHTML,
		Framework:       input.Framework,
		Tags:            input.Tags,
		IsPublic:        input.IsPublic,
	}
	if input.Language != nil && *input.Language != "" {
		project.Language = *input.Language
	}
	if err := s.projects.Create(ctx, project); err != nil {
		s.logger.WithError(err).WithField("user_id", owner.ID).Error("create project failed")
		return nil, internal("error creating project", err)
	}

	s.logger.WithFields(logrus.Fields{"project_id": project.ID, "user_id": owner.ID}).Info("project created")
	return project, nil
}

func (s *ProjectService) List(ctx context.Context, owner *entity.User, skip int, limit int) (*ProjectPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	projects, total, err := s.projects.ListByUser(ctx, owner.ID, limit, skip)
	if err != nil {
		return nil, internal("error listing projects", err)
	}
	return &ProjectPage{
		Projects: projects,
		Total:    total,
		Page:     skip/limit + 1,
		Limit:    limit,
	}, nil
}

// Get loads a project the caller may act on. A missing project is a
// not-found failure; someone else's project is an authorization failure
// unless the caller is an admin.
func (s *ProjectService) Get(ctx context.Context, caller *entity.User, projectID uuid.UUID) (*entity.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, internal("error loading project", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if !project.OwnedBy(caller.ID) && !caller.IsAdmin {
		return nil, ErrForbidden
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, caller *entity.User, projectID uuid.UUID, input UpdateProjectInput) (*entity.Project, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		project.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.VibeDescription != nil {
		project.VibeDescription = *input.VibeDescription
	}
	if input.Status != nil {
		project.Status = entity.ProjectStatus(*input.Status)
	}
	if input.Language != nil {
		project.Language = *input.Language
	}
	if input.Framework != nil {
		project.Framework = input.Framework
	}
	if input.CustomDomain != nil {
		project.CustomDomain = input.CustomDomain
	}
	if input.Tags != nil {
		project.Tags = *input.Tags
	}
	if input.Collaborators != nil {
		project.Collaborators = *input.Collaborators
	}
	if input.IsPublic != nil {
		project.IsPublic = *input.IsPublic
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, internal("error updating project", err)
	}
	s.logger.WithField("project_id", project.ID).Info("project updated")
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, caller *entity.User, projectID uuid.UUID) error {
	if _, err := s.Get(ctx, caller, projectID); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return internal("error deleting project", err)
	}
	s.logger.WithField("project_id", projectID).Info("project deleted")
	return nil
}

// GenerateCode runs the generator for the project's language. The
// project sits in "generating" while the call is in flight and falls back
// to its previous status if generation fails.
func (s *ProjectService) GenerateCode(ctx context.Context, caller *entity.User, projectID uuid.UUID, vibe *string, language *string) (*GenerateCodeResult, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !s.codegen.Available() {
		return nil, ErrGeneratorUnavailable
	}

	if vibe != nil && strings.TrimSpace(*vibe) != "" {
		project.VibeDescription = *vibe
	}
	if language != nil && *language != "" {
		project.Language = *language
	}
	if project.Language != LanguageHTML && project.Language != LanguageReact {
		return nil, ErrInvalidLanguage
	}

	previous := project.Status
	project.Status = entity.ProjectGenerating
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, internal("error generating code", err)
	}

	start := time.Now()
	code, genErr := s.codegen.ForLanguage(ctx, project.Language, project.VibeDescription)
	elapsed := time.Since(start)

	if genErr != nil {
		project.Status = previous
		if err := s.projects.Update(context.WithoutCancel(ctx), project); err != nil {
			s.logger.WithError(err).WithField("project_id", project.ID).Error("restore project status failed")
		}
		return nil, genErr
	}

	preview, err := s.previewURL(project)
	if err != nil {
		return nil, internal("error saving generated code", err)
	}
	project.GeneratedCode = &code
	project.PreviewURL = &preview
	project.Status = entity.ProjectGenerated
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, internal("error saving generated code", err)
	}

	s.logger.WithFields(logrus.Fields{
		"project_id": project.ID,
		"language":   project.Language,
		"elapsed":    elapsed.String(),
	}).Info("project code generated")
	return &GenerateCodeResult{
		Project:       project,
		GeneratedCode: code,
		PreviewURL:    project.PreviewURL,
		ElapsedTime:   elapsed,
	}, nil
}

func (s *ProjectService) Publish(ctx context.Context, caller *entity.User, projectID uuid.UUID, input PublishInput) (*entity.Project, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if input.Domain != nil && strings.TrimSpace(*input.Domain) != "" {
		domain := strings.TrimSpace(*input.Domain)
		project.CustomDomain = &domain
	}
	liveURL := s.liveURL(project)
	project.LiveURL = &liveURL
	project.Status = entity.ProjectPublished
	project.PublishedAt = &now
	project.IsPublic = true
	project.EnableAnalytics = input.EnableAnalytics

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, internal("error publishing project", err)
	}
	s.logger.WithFields(logrus.Fields{"project_id": project.ID, "live_url": liveURL}).Info("project published")
	return project, nil
}

func (s *ProjectService) Archive(ctx context.Context, caller *entity.User, projectID uuid.UUID) (*entity.Project, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	project.Status = entity.ProjectArchived
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, internal("error archiving project", err)
	}
	s.logger.WithField("project_id", project.ID).Info("project archived")
	return project, nil
}

// Duplicate copies the content of a project into a new draft owned by the
// caller, whoever owned the original.
func (s *ProjectService) Duplicate(ctx context.Context, caller *entity.User, projectID uuid.UUID) (*entity.Project, error) {
	original, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	name := original.Name + " (Copy)"
	var copied *entity.Project
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		slug, err := s.uniqueSlug(ctx, name)
		if err != nil {
			return err
		}
		copied = &entity.Project{
			UserID:          caller.ID,
			Name:            name,
			Description:     original.Description,
			Slug:            slug,
			VibeDescription: original.VibeDescription,
			GeneratedCode:   original.GeneratedCode,
			Status:          entity.ProjectDraft,
			Language:        original.Language,
			Framework:       original.Framework,
			Tags:            original.Tags,
		}
		return s.projects.Create(ctx, copied)
	})
	if err != nil {
		return nil, internal("error duplicating project", err)
	}

	s.logger.WithFields(logrus.Fields{"project_id": original.ID, "copy_id": copied.ID}).Info("project duplicated")
	return copied, nil
}

// Export renders the project as JSON or a zip archive. With an export
// store configured the file is uploaded and a download URL is returned.
func (s *ProjectService) Export(ctx context.Context, caller *entity.User, projectID uuid.UUID, format string) (*ProjectExport, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	export, err := renderExport(project, format, s.now())
	if err != nil {
		if errors.Is(err, ErrInvalidExportFormat) {
			return nil, err
		}
		return nil, internal("error exporting project", err)
	}

	if s.exports != nil {
		key := fmt.Sprintf("exports/%s/%d-%s", project.ID, export.CreatedAt.Unix(), export.FileName)
		exportURL, err := s.exports.Upload(ctx, key, export.ContentType, export.Data)
		if err != nil {
			s.logger.WithError(err).WithField("project_id", project.ID).Error("export upload failed")
			return nil, internal("error exporting project", err)
		}
		export.URL = exportURL
	}

	s.logger.WithFields(logrus.Fields{"project_id": project.ID, "format": export.Format, "size": export.Size}).Info("project exported")
	return export, nil
}

func (s *ProjectService) Stats(ctx context.Context, owner *entity.User) (*repository.ProjectStats, error) {
	stats, err := s.projects.StatsByUser(ctx, owner.ID)
	if err != nil {
		return nil, internal("error loading project stats", err)
	}
	return stats, nil
}

func (s *ProjectService) Search(ctx context.Context, owner *entity.User, query string, status string, limit int) ([]entity.Project, error) {
	if limit <= 0 {
		limit = 10
	}
	projects, err := s.projects.Search(ctx, owner.ID, strings.TrimSpace(query), strings.TrimSpace(status), limit)
	if err != nil {
		return nil, internal("error searching projects", err)
	}
	return projects, nil
}

// Preview returns the generated code of a project for rendering.
func (s *ProjectService) Preview(ctx context.Context, caller *entity.User, projectID uuid.UUID) (string, error) {
	project, err := s.Get(ctx, caller, projectID)
	if err != nil {
		return "", err
	}
	if project.GeneratedCode == nil {
		return "", newFailure(KindNotFound, "project has no generated code")
	}
	return *project.GeneratedCode, nil
}

// SharedPreview serves generated code to holders of a signed preview link.
func (s *ProjectService) SharedPreview(ctx context.Context, projectID uuid.UUID, token string) (string, error) {
	if !s.config.Preview.Enabled() {
		return "", ErrProjectNotFound
	}
	signedFor, err := s.config.Preview.Parse(token)
	if err != nil || signedFor != projectID {
		return "", ErrInvalidToken
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return "", internal("error loading project", err)
	}
	if project == nil {
		return "", ErrProjectNotFound
	}
	if project.GeneratedCode == nil {
		return "", newFailure(KindNotFound, "project has no generated code")
	}
	return *project.GeneratedCode, nil
}

func (s *ProjectService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	slug := base
	for attempt := 0; attempt < 5; attempt++ {
		exists, err := s.projects.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%s", base, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

func (s *ProjectService) previewURL(project *entity.Project) (string, error) {
	if !s.config.Preview.Enabled() {
		return fmt.Sprintf("%s/api/projects/%s/preview", s.baseURL(), project.ID), nil
	}
	token, err := s.config.Preview.Sign(project.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/preview/%s?token=%s", s.baseURL(), project.ID, url.QueryEscape(token)), nil
}

func (s *ProjectService) liveURL(project *entity.Project) string {
	if project.CustomDomain != nil && *project.CustomDomain != "" {
		return "https://" + *project.CustomDomain
	}
	return fmt.Sprintf("%s/p/%s", s.baseURL(), project.Slug)
}

func (s *ProjectService) baseURL() string {
	base := strings.TrimRight(s.config.PublicBaseURL, "/")
	if base == "" {
		return "https://vividly.app"
	}
	return base
}

func (s *ProjectService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
