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

type UserHandler struct {
	Service  *service.UserService
	Validate *validator.Validate
}

func NewUserHandler(svc *service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{Service: svc, Validate: validate}
}

func (h *UserHandler) Me(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	profile, err := h.Service.Profile(c.Request().Context(), user.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserDetailResponse{
		UserResponse:  dto.UserResponseFromEntity(profile.User),
		ProjectsCount: profile.ProjectsCount,
	})
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.UpdateUserRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	updated, err := h.Service.UpdateProfile(c.Request().Context(), user.ID, profileInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(updated))
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	err := h.Service.ChangePassword(c.Request().Context(), user.ID, service.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
		IPAddress:       clientIP(c),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password changed successfully"})
}

func (h *UserHandler) Deactivate(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.DeactivateRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.Deactivate(c.Request().Context(), user.ID, req.Password, clientIP(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Account deactivated successfully"})
}

func (h *UserHandler) DeleteAccount(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.DeleteAccountRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.DeleteAccount(c.Request().Context(), user.ID, req.Password, req.Confirmation); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Account deleted successfully"})
}

func (h *UserHandler) Activity(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	logs, err := h.Service.Activity(c.Request().Context(), user.ID, queryInt(c, "limit"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ActivityResponsesFromEntities(logs))
}

func (h *UserHandler) Preferences(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	prefs, err := h.Service.Preferences(c.Request().Context(), user.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *UserHandler) UpdatePreferences(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.UpdatePreferencesRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	prefs, err := h.Service.UpdatePreferences(c.Request().Context(), user.ID, service.UpdatePreferencesInput{
		EmailNotifications: req.EmailNotifications,
		PushNotifications:  req.PushNotifications,
		MarketingEmails:    req.MarketingEmails,
		Theme:              req.Theme,
		Language:           req.Language,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	user, err := h.Service.GetUser(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) Update(c echo.Context) error {
	caller, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	var req dto.UpdateUserRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	updated, err := h.Service.UpdateUser(c.Request().Context(), caller, id, profileInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(updated))
}

func (h *UserHandler) List(c echo.Context) error {
	skip, limit := parseSkipLimit(c)
	page, err := h.Service.ListUsers(c.Request().Context(), skip, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserListResponse{
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
		Users: dto.UserResponsesFromEntities(page.Users),
	})
}

func (h *UserHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" || len(query) > 100 {
		return writeError(c, http.StatusBadRequest, errors.New("q must be 1 to 100 characters"))
	}
	users, err := h.Service.SearchUsers(c.Request().Context(), query, queryInt(c, "limit"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserSearchResponse{
		Total:   len(users),
		Results: dto.UserResponsesFromEntities(users),
	})
}

func (h *UserHandler) Stats(c echo.Context) error {
	stats, err := h.Service.Stats(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserStatsResponseFrom(stats))
}

func (h *UserHandler) Activate(c echo.Context) error {
	return h.setActive(c, true, "User activated")
}

func (h *UserHandler) AdminDeactivate(c echo.Context) error {
	return h.setActive(c, false, "User deactivated")
}

func (h *UserHandler) AdminDelete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.DeleteUser(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "User deleted"})
}

func (h *UserHandler) setActive(c echo.Context, active bool, message string) error {
	id, err := parseID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.SetActive(c.Request().Context(), id, active); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

func profileInput(req dto.UpdateUserRequest) service.UpdateProfileInput {
	return service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Phone:     req.Phone,
		Country:   req.Country,
		Timezone:  req.Timezone,
		Language:  req.Language,
	}
}
