package middleware

import (
	"context"
	"net/http"
	"strings"

	"vividly/internal/entity"
	"vividly/internal/service"

	"github.com/labstack/echo/v4"
)

// Authenticator is satisfied by *service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

type AuthMiddleware struct {
	Auth Authenticator
}

// RequireAuth resolves the bearer token to an active user. Disabled
// accounts get 403 and token problems 401.
func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Auth == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		token := extractBearerToken(c.Request())
		if token == "" {
			return unauthorized(c)
		}
		user, err := m.Auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			switch service.KindOf(err) {
			case service.KindAuthorization:
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			case service.KindInternal:
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
			}
			return unauthorized(c)
		}
		SetCurrentUser(c, user)
		return next(c)
	}
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
