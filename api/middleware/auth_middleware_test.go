package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vividly/internal/entity"
	"vividly/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authenticatorFunc func(ctx context.Context, token string) (*entity.User, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	return f(ctx, token)
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer  abc ":     "abc",
		"Basic dXNlcjpwdw": "",
		"Bearer":           "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, extractBearerToken(req), header)
	}
}

func TestRequireAuth(t *testing.T) {
	user := &entity.User{ID: uuid.New(), IsActive: true}
	m := AuthMiddleware{Auth: authenticatorFunc(func(_ context.Context, token string) (*entity.User, error) {
		switch token {
		case "good":
			return user, nil
		case "disabled":
			return nil, service.ErrAccountDisabled
		case "broken":
			return nil, errors.New("db down")
		default:
			return nil, service.ErrInvalidToken
		}
	})}

	run := func(token string) (error, *entity.User) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		c := e.NewContext(req, httptest.NewRecorder())
		var seen *entity.User
		err := m.RequireAuth(func(c echo.Context) error {
			seen, _ = UserFromContext(c)
			return nil
		})(c)
		return err, seen
	}

	err, seen := run("good")
	require.NoError(t, err)
	assert.Equal(t, user.ID, seen.ID)

	for token, status := range map[string]int{
		"disabled": http.StatusForbidden,
		"expired":  http.StatusUnauthorized,
		"broken":   http.StatusInternalServerError,
	} {
		err, seen := run(token)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, token)
		assert.Equal(t, status, httpErr.Code, token)
		assert.Nil(t, seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	next := func(echo.Context) error { return nil }

	var httpErr *echo.HTTPError
	require.ErrorAs(t, RequireAdmin(next)(c), &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	SetCurrentUser(c, &entity.User{ID: uuid.New()})
	require.ErrorAs(t, RequireAdmin(next)(c), &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	SetCurrentUser(c, &entity.User{ID: uuid.New(), IsAdmin: true})
	assert.NoError(t, RequireAdmin(next)(c))
}
