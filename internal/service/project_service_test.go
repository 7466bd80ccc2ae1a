package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"vividly/internal/entity"
	"vividly/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryExportStore struct {
	keys []string
	data map[string][]byte
}

func (s *memoryExportStore) Upload(_ context.Context, key string, _ string, data []byte) (string, error) {
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.keys = append(s.keys, key)
	s.data[key] = data
	return "https://exports.example.com/" + key + "?signature=abc", nil
}

func createProject(t *testing.T, svc *service.ProjectService, owner *entity.User, name string) *entity.Project {
	t.Helper()
	project, err := svc.Create(context.Background(), owner, service.CreateProjectInput{
		Name:            name,
		VibeDescription: "a calm landing page with soft pastel colors",
	})
	require.NoError(t, err)
	return project
}

func TestProjectService_ForeignProjectIsForbiddenNotMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.projectService(nil, nil)
	alice := f.register(t, "alice@example.com", "Secret123!")
	bob := f.register(t, "bob@example.com", "Secret123!")

	project := createProject(t, svc, alice, "Alice Site")
	assert.Equal(t, entity.ProjectDraft, project.Status)
	assert.Equal(t, "alice-site", project.Slug)

	_, err := svc.Get(ctx, bob, project.ID)
	require.ErrorIs(t, err, service.ErrForbidden)
	assert.Equal(t, service.KindAuthorization, service.KindOf(err))

	_, err = svc.Get(ctx, bob, uuid.New())
	require.ErrorIs(t, err, service.ErrProjectNotFound)

	bob.IsAdmin = true
	got, err := svc.Get(ctx, bob, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
}

func TestProjectService_SlugsStayUnique(t *testing.T) {
	f := newFixture(t)
	svc := f.projectService(nil, nil)
	owner := f.register(t, "slug@example.com", "Secret123!")

	first := createProject(t, svc, owner, "Café Menu")
	second := createProject(t, svc, owner, "Cafe Menu")
	assert.Equal(t, "cafe-menu", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "cafe-menu-")
}

func TestProjectService_UpdateListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.projectService(nil, nil)
	owner := f.register(t, "owner@example.com", "Secret123!")
	project := createProject(t, svc, owner, "Portfolio")
	createProject(t, svc, owner, "Blog")

	name := "Portfolio v2"
	status := "anything-goes"
	tags := []string{"personal", "dark"}
	updated, err := svc.Update(ctx, owner, project.ID, service.UpdateProjectInput{Name: &name, Status: &status, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Portfolio v2", updated.Name)
	assert.Equal(t, entity.ProjectStatus("anything-goes"), updated.Status)
	assert.Equal(t, "a calm landing page with soft pastel colors", updated.VibeDescription)

	page, err := svc.List(ctx, owner, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Projects, 1)
	assert.Equal(t, 1, page.Page)

	require.NoError(t, svc.Delete(ctx, owner, project.ID))
	_, err = svc.Get(ctx, owner, project.ID)
	require.ErrorIs(t, err, service.ErrProjectNotFound)
}

func TestProjectService_GenerateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	generator := &stubGenerator{text: "```html\n<!DOCTYPE html><html></html>\n```"}
	svc := f.projectService(generator, nil)
	owner := f.register(t, "gen@example.com", "Secret123!")
	project := createProject(t, svc, owner, "Generated")

	vibe := "neon cyberpunk portfolio with glitch effects"
	result, err := svc.GenerateCode(ctx, owner, project.ID, &vibe, nil)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", result.GeneratedCode)
	assert.Equal(t, entity.ProjectGenerated, result.Project.Status)
	require.NotNil(t, result.PreviewURL)
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], vibe)

	preview, err := svc.Preview(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", preview)

	link, err := url.Parse(*result.PreviewURL)
	require.NoError(t, err)
	assert.Equal(t, "vividly.test", link.Host)
	assert.Equal(t, "/preview/"+project.ID.String(), link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	shared, err := svc.SharedPreview(ctx, project.ID, token)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", shared)
}

func TestProjectService_SharedPreviewRejectsBadLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.projectService(&stubGenerator{text: "<p>hi</p>"}, nil)
	owner := f.register(t, "share@example.com", "Secret123!")
	project := createProject(t, svc, owner, "Shared")
	other := createProject(t, svc, owner, "Other")
	_, err := svc.GenerateCode(ctx, owner, project.ID, nil, nil)
	require.NoError(t, err)

	signer := service.PreviewTokenSigner{Secret: []byte("preview-secret")}
	forOther, err := signer.Sign(other.ID)
	require.NoError(t, err)
	_, err = svc.SharedPreview(ctx, project.ID, forOther)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	forged, err := service.PreviewTokenSigner{Secret: []byte("wrong")}.Sign(project.ID)
	require.NoError(t, err)
	_, err = svc.SharedPreview(ctx, project.ID, forged)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	expired, err := service.PreviewTokenSigner{
		Secret: []byte("preview-secret"),
		TTL:    time.Minute,
		Now:    func() time.Time { return time.Now().Add(-time.Hour) },
	}.Sign(project.ID)
	require.NoError(t, err)
	_, err = svc.SharedPreview(ctx, project.ID, expired)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = svc.SharedPreview(ctx, project.ID, "")
	require.ErrorIs(t, err, service.ErrInvalidToken)

	notGenerated, err := signer.Sign(other.ID)
	require.NoError(t, err)
	_, err = svc.SharedPreview(ctx, other.ID, notGenerated)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestProjectService_PreviewURLWithoutSigner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewProjectService(
		f.tx,
		f.projects,
		service.NewCodegenService(&stubGenerator{text: "<p>hi</p>"}, f.logger),
		nil,
		service.RealClock{},
		service.ProjectConfig{PublicBaseURL: "https://vividly.test/"},
		f.logger,
	)
	owner := f.register(t, "api-only@example.com", "Secret123!")
	project := createProject(t, svc, owner, "API Only")

	result, err := svc.GenerateCode(ctx, owner, project.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://vividly.test/api/projects/"+project.ID.String()+"/preview", *result.PreviewURL)

	_, err = svc.SharedPreview(ctx, project.ID, "anything")
	require.ErrorIs(t, err, service.ErrProjectNotFound)
}

func TestProjectService_GenerateCodeFailureRestoresStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	generator := &stubGenerator{err: errors.New("quota exceeded")}
	svc := f.projectService(generator, nil)
	owner := f.register(t, "fail@example.com", "Secret123!")
	project := createProject(t, svc, owner, "Broken")

	_, err := svc.GenerateCode(ctx, owner, project.ID, nil, nil)
	require.ErrorIs(t, err, service.ErrGenerationFailed)

	stored, err := f.projects.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectDraft, stored.Status)
	assert.Nil(t, stored.GeneratedCode)

	vue := "vue"
	_, err = svc.GenerateCode(ctx, owner, project.ID, nil, &vue)
	require.ErrorIs(t, err, service.ErrInvalidLanguage)

	unconfigured := f.projectService(nil, nil)
	_, err = unconfigured.GenerateCode(ctx, owner, project.ID, nil, nil)
	require.ErrorIs(t, err, service.ErrGeneratorUnavailable)
}

func TestProjectService_PublishArchiveDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.projectService(nil, nil)
	owner := f.register(t, "pub@example.com", "Secret123!")
	admin := f.register(t, "admin@example.com", "Secret123!")
	admin.IsAdmin = true
	project := createProject(t, svc, owner, "Launch Page")

	published, err := svc.Publish(ctx, owner, project.ID, service.PublishInput{EnableAnalytics: true})
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectPublished, published.Status)
	require.NotNil(t, published.LiveURL)
	assert.Equal(t, "https://vividly.test/p/launch-page", *published.LiveURL)
	assert.NotNil(t, published.PublishedAt)
	assert.True(t, published.IsPublic)
	assert.True(t, published.EnableAnalytics)

	domain := "launch.example.com"
	published, err = svc.Publish(ctx, owner, project.ID, service.PublishInput{Domain: &domain})
	require.NoError(t, err)
	assert.Equal(t, "https://launch.example.com", *published.LiveURL)

	copied, err := svc.Duplicate(ctx, admin, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch Page (Copy)", copied.Name)
	assert.Equal(t, admin.ID, copied.UserID)
	assert.Equal(t, entity.ProjectDraft, copied.Status)
	assert.NotEqual(t, project.Slug, copied.Slug)

	archived, err := svc.Archive(ctx, owner, project.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectArchived, archived.Status)

	stats, err := svc.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Archived)
}

func TestProjectService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	generator := &stubGenerator{text: "<html></html>"}
	store := &memoryExportStore{}
	svc := f.projectService(generator, store)
	owner := f.register(t, "export@example.com", "Secret123!")
	project := createProject(t, svc, owner, "Export Me")
	_, err := svc.GenerateCode(ctx, owner, project.ID, nil, nil)
	require.NoError(t, err)

	jsonExport, err := svc.Export(ctx, owner, project.ID, "json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(jsonExport.Data, &doc))
	assert.Equal(t, "Export Me", doc["name"])
	assert.Equal(t, "<html></html>", doc["generated_code"])
	assert.Contains(t, jsonExport.URL, "https://exports.example.com/exports/"+project.ID.String())

	zipExport, err := svc.Export(ctx, owner, project.ID, "zip")
	require.NoError(t, err)
	assert.Equal(t, "application/zip", zipExport.ContentType)
	assert.Equal(t, int64(len(zipExport.Data)), zipExport.Size)

	reader, err := zip.NewReader(bytes.NewReader(zipExport.Data), int64(len(zipExport.Data)))
	require.NoError(t, err)
	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{"project.json", "README.md", "index.html"}, names)
	assert.Len(t, store.keys, 2)

	_, err = svc.Export(ctx, owner, project.ID, "tar")
	require.ErrorIs(t, err, service.ErrInvalidExportFormat)
}

func TestProjectService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.projectService(nil, nil)
	owner := f.register(t, "search@example.com", "Secret123!")
	other := f.register(t, "other@example.com", "Secret123!")
	createProject(t, svc, owner, "Bakery Website")
	createProject(t, svc, owner, "Gym Landing")
	createProject(t, svc, other, "Bakery Clone")

	results, err := svc.Search(ctx, owner, "bakery", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bakery Website", results[0].Name)

	results, err = svc.Search(ctx, owner, "bakery", "published", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
