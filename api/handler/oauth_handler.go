package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"vividly/internal/dto"
	"vividly/internal/service"
	"vividly/internal/utils"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	OAuthStateCookie = "vividly_oauth_state"
	oauthStateMaxAge = 300
)

type OAuthHandler struct {
	Service       *service.OAuthService
	Store         sessions.Store
	SecureCookies bool
}

// NewOAuthHandler keeps the state nonce in a signed cookie. secret must be
// at least 32 bytes in production.
func NewOAuthHandler(svc *service.OAuthService, secret []byte, secureCookies bool) *OAuthHandler {
	return &OAuthHandler{
		Service:       svc,
		Store:         sessions.NewCookieStore(secret),
		SecureCookies: secureCookies,
	}
}

func (h *OAuthHandler) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"providers": h.Service.Providers()})
}

func (h *OAuthHandler) Authorize(c echo.Context) error {
	provider := c.Param("provider")
	state, err := utils.RandomString(32)
	if err != nil {
		return writeServiceError(c, err)
	}
	url, err := h.Service.AuthorizationURL(provider, state)
	if err != nil {
		return writeServiceError(c, err)
	}

	session, _ := h.Store.Get(c.Request(), OAuthStateCookie)
	session.Values["state"] = state
	session.Values["provider"] = provider
	session.Options = h.cookieOptions(oauthStateMaxAge)
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.OAuthAuthorizeResponse{AuthorizationURL: url})
}

func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")
	if providerErr := c.QueryParam("error"); providerErr != "" {
		return writeError(c, http.StatusBadRequest, errors.New("authorization was denied by the provider"))
	}
	code := c.QueryParam("code")
	if code == "" {
		return writeError(c, http.StatusBadRequest, errors.New("missing authorization code"))
	}

	session, _ := h.Store.Get(c.Request(), OAuthStateCookie)
	savedState, _ := session.Values["state"].(string)
	savedProvider, _ := session.Values["provider"].(string)
	state := c.QueryParam("state")

	session.Options = h.cookieOptions(-1)
	_ = session.Save(c.Request(), c.Response())

	if savedState == "" || savedProvider != provider ||
		subtle.ConstantTimeCompare([]byte(savedState), []byte(state)) != 1 {
		return writeServiceError(c, service.ErrInvalidState)
	}

	result, err := h.Service.Callback(c.Request().Context(), provider, code, clientIP(c), userAgent(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.OAuthCallbackResponse{
		Message:      "Successfully authenticated with " + provider,
		UserID:       result.User.ID.String(),
		Email:        result.User.Email,
		Created:      result.Created,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    result.Tokens.TokenType,
		ExpiresIn:    result.Tokens.ExpiresIn,
	})
}

func (h *OAuthHandler) cookieOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/api/auth/oauth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
