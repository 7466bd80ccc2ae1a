package handler

import (
	"context"
	"net/http"

	"vividly/internal/dto"
	"vividly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CodegenHandler exposes the generator directly. Nothing it produces is
// persisted except through ProjectGenerate.
type CodegenHandler struct {
	Codegen  *service.CodegenService
	Projects *service.ProjectService
	Validate *validator.Validate
}

func NewCodegenHandler(codegen *service.CodegenService, projects *service.ProjectService, validate *validator.Validate) *CodegenHandler {
	return &CodegenHandler{Codegen: codegen, Projects: projects, Validate: validate}
}

func (h *CodegenHandler) HTML(c echo.Context) error {
	return h.generate(c, h.Codegen.HTML)
}

func (h *CodegenHandler) React(c echo.Context) error {
	return h.generate(c, h.Codegen.React)
}

func (h *CodegenHandler) CSS(c echo.Context) error {
	return h.generate(c, h.Codegen.CSS)
}

func (h *CodegenHandler) ProjectStructure(c echo.Context) error {
	var req dto.VibeRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	structure, err := h.Codegen.ProjectStructure(c.Request().Context(), req.VibeDescription)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.CodegenResponse{Status: "generated", Structure: structure})
}

func (h *CodegenHandler) Optimize(c echo.Context) error {
	var req dto.OptimizeRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	code, err := h.Codegen.Optimize(c.Request().Context(), req.Code, req.Language)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.CodegenResponse{Status: "optimized", OptimizedCode: code})
}

// ProjectGenerate regenerates a stored project from its saved vibe
// description. The language comes from the body or the query string.
func (h *CodegenHandler) ProjectGenerate(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	req := dto.ProjectGenerateRequest{Language: c.QueryParam("language")}
	if err := decodeOptionalJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := validate(h.Validate, req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if req.Language == "" {
		req.Language = service.LanguageHTML
	}
	result, err := h.Projects.GenerateCode(c.Request().Context(), user, id, nil, &req.Language)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.GenerateCodeResponseFromResult(result))
}

func (h *CodegenHandler) generate(c echo.Context, fn func(context.Context, string) (string, error)) error {
	var req dto.VibeRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	code, err := fn(c.Request().Context(), req.VibeDescription)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.CodegenResponse{Status: "generated", GeneratedCode: code})
}
