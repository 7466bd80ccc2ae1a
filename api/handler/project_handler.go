package handler

import (
	"errors"
	"net/http"
	"strings"

	"vividly/internal/dto"
	"vividly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ProjectHandler struct {
	Service  *service.ProjectService
	Validate *validator.Validate
}

func NewProjectHandler(svc *service.ProjectService, validate *validator.Validate) *ProjectHandler {
	return &ProjectHandler{Service: svc, Validate: validate}
}

func (h *ProjectHandler) Create(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.CreateProjectRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	project, err := h.Service.Create(c.Request().Context(), user, service.CreateProjectInput{
		Name:            req.Name,
		Description:     req.Description,
		VibeDescription: req.VibeDescription,
		Language:        req.Language,
		Framework:       req.Framework,
		Tags:            req.Tags,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.ProjectResponseFromEntity(project))
}

func (h *ProjectHandler) List(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	skip, limit := parseSkipLimit(c)
	if limit > 100 {
		limit = 100
	}
	page, err := h.Service.List(c.Request().Context(), user, skip, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ProjectListResponseFromPage(page))
}

func (h *ProjectHandler) Get(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	project, err := h.Service.Get(c.Request().Context(), user, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ProjectResponseFromEntity(project))
}

func (h *ProjectHandler) Update(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var req dto.UpdateProjectRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	project, err := h.Service.Update(c.Request().Context(), user, id, service.UpdateProjectInput{
		Name:            req.Name,
		Description:     req.Description,
		VibeDescription: req.VibeDescription,
		Status:          req.Status,
		Language:        req.Language,
		Framework:       req.Framework,
		CustomDomain:    req.CustomDomain,
		Tags:            req.Tags,
		Collaborators:   req.Collaborators,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ProjectResponseFromEntity(project))
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.Delete(c.Request().Context(), user, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Project deleted successfully"})
}

func (h *ProjectHandler) GenerateCode(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var req dto.GenerateCodeRequest
	if err := decodeOptionalJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.GenerateCode(c.Request().Context(), user, id, req.VibeDescription, req.Language)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.GenerateCodeResponseFromResult(result))
}

func (h *ProjectHandler) Publish(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var req dto.PublishRequest
	if err := decodeOptionalJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.PublishInput{Domain: req.Domain, EnableAnalytics: true}
	if req.EnableAnalytics != nil {
		input.EnableAnalytics = *req.EnableAnalytics
	}
	project, err := h.Service.Publish(c.Request().Context(), user, id, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PublishResponseFromEntity(project))
}

func (h *ProjectHandler) Archive(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if _, err := h.Service.Archive(c.Request().Context(), user, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Project archived successfully"})
}

func (h *ProjectHandler) Duplicate(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	project, err := h.Service.Duplicate(c.Request().Context(), user, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.DuplicateResponse{
		OriginalID: id.String(),
		NewID:      project.ID.String(),
		NewProject: dto.ProjectResponseFromEntity(project),
	})
}

// Export answers with a download URL when object storage is configured and
// streams the file otherwise.
func (h *ProjectHandler) Export(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var req dto.ExportRequest
	if err := decodeOptionalJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if req.Format == "" {
		req.Format = service.ExportJSON
	}
	export, err := h.Service.Export(c.Request().Context(), user, id, req.Format)
	if err != nil {
		return writeServiceError(c, err)
	}
	if export.URL != "" {
		return c.JSON(http.StatusOK, dto.ExportResponseFrom(export))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName+`"`)
	return c.Blob(http.StatusOK, export.ContentType, export.Data)
}

func (h *ProjectHandler) Preview(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	code, err := h.Service.Preview(c.Request().Context(), user, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return writePreview(c, code)
}

// SharedPreview serves a signed preview link without a bearer header.
func (h *ProjectHandler) SharedPreview(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	code, err := h.Service.SharedPreview(c.Request().Context(), id, c.QueryParam("token"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return writePreview(c, code)
}

// Generated pages run sandboxed so their scripts cannot reach the API origin.
func writePreview(c echo.Context, code string) error {
	c.Response().Header().Set("Content-Security-Policy", "sandbox allow-scripts allow-forms allow-popups")
	c.Response().Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
	return c.HTML(http.StatusOK, code)
}

func (h *ProjectHandler) Stats(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	stats, err := h.Service.Stats(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ProjectStatsResponseFrom(stats))
}

func (h *ProjectHandler) Search(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" || len(query) > 100 {
		return writeError(c, http.StatusBadRequest, errors.New("q must be 1 to 100 characters"))
	}
	projects, err := h.Service.Search(c.Request().Context(), user, query, c.QueryParam("status"), queryInt(c, "limit"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ProjectSearchResponse{
		Total:   len(projects),
		Results: dto.ProjectResponsesFromEntities(projects),
	})
}
