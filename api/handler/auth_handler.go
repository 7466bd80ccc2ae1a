package handler

import (
	"fmt"
	"net/http"

	"vividly/internal/dto"
	"vividly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	}
	user, err := h.Service.Register(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.Envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    map[string]any{"user": dto.UserResponseFromEntity(user)},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: clientIP(c),
		UserAgent: userAgent(c),
	}
	result, err := h.Service.Login(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	message := "Login successful"
	if result.MFARequired {
		message = "Two-factor authentication required"
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: message,
		Data:    dto.TokenResponseFromResult(result),
	})
}

func (h *AuthHandler) LoginWithMFA(c echo.Context) error {
	var req dto.LoginMFARequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	input := service.LoginMFAInput{
		MFAToken:  req.MFAToken,
		Code:      req.Code,
		IPAddress: clientIP(c),
		UserAgent: userAgent(c),
	}
	result, err := h.Service.LoginWithMFA(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Login successful",
		Data:    dto.TokenResponseFromResult(result),
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req dto.RefreshRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	result, err := h.Service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Token refreshed successfully",
		Data:    dto.TokenResponseFromResult(result),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.Logout(c.Request().Context(), user.ID, clientIP(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) RevokeAllSessions(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	revoked, err := h.Service.RevokeAllSessions(c.Request().Context(), user.ID, clientIP(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: fmt.Sprintf("Revoked %d sessions", revoked),
		Data:    map[string]int64{"revoked": revoked},
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: "User information retrieved",
		Data:    map[string]any{"user": dto.UserResponseFromEntity(user)},
	})
}

func (h *AuthHandler) Sessions(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	sessions, err := h.Service.ListSessions(c.Request().Context(), user.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Sessions retrieved",
		Data:    map[string]any{"sessions": dto.SessionResponsesFromEntities(sessions)},
	})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Email verified successfully"})
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.ResendVerification(c.Request().Context(), user.ID); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Verification email sent"})
}

func (h *AuthHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto.Envelope{
		Success: true,
		Message: "If the email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Password reset successfully"})
}

func (h *AuthHandler) EnableMFA(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	setup, err := h.Service.EnableMFA(c.Request().Context(), user.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Scan the code with an authenticator app, then verify",
		Data:    dto.MFAEnableResponse{Secret: setup.Secret, OTPAuthURL: setup.OTPAuthURL},
	})
}

func (h *AuthHandler) VerifyMFA(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.MFAVerifyRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.VerifyMFA(c.Request().Context(), user.ID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Two-factor authentication enabled"})
}

func (h *AuthHandler) DisableMFA(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.MFADisableRequest
	if err := bind(c, h.Validate, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := h.Service.DisableMFA(c.Request().Context(), user.ID, req.Password); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Two-factor authentication disabled"})
}
