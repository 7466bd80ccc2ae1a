package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"vividly/api/handler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	pair := s.registerAndLogin(t, "alice@example.com", "Secret123!")
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	rec := s.do(t, http.MethodGet, "/api/auth/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": pair.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[envelope](t, rec)
	assert.True(t, env.Success)

	rec = s.do(t, http.MethodGet, "/api/auth/sessions", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions struct {
		Sessions []map[string]any `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(decode[envelope](t, rec).Data, &sessions))
	assert.Len(t, sessions.Sessions, 1)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/sessions", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode[envelope](t, rec).Data, &sessions))
	assert.Empty(t, sessions.Sessions)
}

func TestRegisterAndLoginWithLongPasswords(t *testing.T) {
	s := newTestServer(t, nil)

	for email, password := range map[string]string{
		"ascii@example.com":    strings.Repeat("a", 80),
		"accented@example.com": strings.Repeat("é", 40),
	} {
		pair := s.registerAndLogin(t, email, password)
		assert.NotEmpty(t, pair.AccessToken, email)
	}
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "not-an-email", "password": "Secret123!", "confirm_password": "Secret123!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "bob@example.com", "password": "Secret123!", "confirm_password": "Other123!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")

	s.registerAndLogin(t, "bob@example.com", "Secret123!")
	rec = s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "BOB@example.com", "password": "Secret123!", "confirm_password": "Secret123!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "bob@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "bob@example.com", "password": "Secret123!", "remember_me": true,
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodGet, "/api/users/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	pair := s.registerAndLogin(t, "carol@example.com", "Secret123!")
	rec = s.do(t, http.MethodGet, "/api/users/me", nil, pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user, err := s.users.FindByEmail(context.Background(), "carol@example.com")
	require.NoError(t, err)
	require.NoError(t, s.users.SetActive(context.Background(), user.ID, false))
	rec = s.do(t, http.MethodGet, "/api/users/me", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	pair := s.registerAndLogin(t, "dana@example.com", "Secret123!")

	rec := s.do(t, http.MethodGet, "/api/users", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ctx := context.Background()
	user, err := s.users.FindByEmail(ctx, "dana@example.com")
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, s.users.Update(ctx, user))

	rec = s.do(t, http.MethodGet, "/api/users?limit=10", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = s.do(t, http.MethodGet, "/api/users/stats/overview", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_users":1`)
}

func TestProjectOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.registerAndLogin(t, "alice@example.com", "Secret123!")
	bob := s.registerAndLogin(t, "bob@example.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name": "Sunset Bakery", "vibe_description": "warm pastel bakery landing page",
	}, alice.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[map[string]any](t, rec)
	assert.Equal(t, "sunset-bakery", project["slug"])
	assert.Equal(t, "draft", project["status"])
	id := project["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/projects/"+id, nil, bob.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/projects/3f0a5a5e-0000-4000-8000-000000000000", nil, bob.AccessToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/projects/not-a-uuid", nil, bob.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name": "Short", "vibe_description": "too short",
	}, alice.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/projects", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestProjectGenerationOverHTTP(t *testing.T) {
	generator := &fakeGenerator{text: "```html\n<h1>Hello</h1>\n```"}
	s := newTestServer(t, generator)
	pair := s.registerAndLogin(t, "erin@example.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name": "Neon Arcade", "vibe_description": "retro neon arcade with glowing buttons",
	}, pair.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/projects/"+id+"/generate-code", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[map[string]any](t, rec)
	assert.Equal(t, "<h1>Hello</h1>", result["generated_code"])
	assert.Equal(t, "generated", result["status"])

	rec = s.do(t, http.MethodGet, "/api/projects/"+id+"/preview", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<h1>Hello</h1>", rec.Body.String())

	// the returned link opens without a bearer header
	link, err := url.Parse(result["preview_url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "/preview/"+id, link.Path)
	rec = s.do(t, http.MethodGet, link.RequestURI(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "<h1>Hello</h1>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "sandbox")

	rec = s.do(t, http.MethodGet, "/preview/"+id+"?token="+link.Query().Get("token")+"x", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/preview/"+id, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/projects/"+id+"/export", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Neon Arcade")

	rec = s.do(t, http.MethodPost, "/api/projects/"+id+"/export", map[string]string{"format": "tar"}, pair.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	generator.err = errors.New("quota exceeded")
	rec = s.do(t, http.MethodPost, "/api/codegen/html", map[string]string{
		"vibe_description": "minimal portfolio in black and white",
	}, pair.AccessToken)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "quota exceeded")
}

func TestCodegenUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	pair := s.registerAndLogin(t, "finn@example.com", "Secret123!")

	rec := s.do(t, http.MethodPost, "/api/codegen/react", map[string]string{
		"vibe_description": "playful toy store with big buttons",
	}, pair.AccessToken)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "code generation is not configured")
}

func TestOAuthStateIsChecked(t *testing.T) {
	srv := fakeGitHub(t)
	s := newTestServer(t, nil, githubProvider(srv))

	rec := s.do(t, http.MethodGet, "/api/auth/oauth/gitlab/authorize", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/oauth/github/authorize", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	authURL, err := url.Parse(decode[map[string]string](t, rec)["authorization_url"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == handler.OAuthStateCookie {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)

	rec = s.do(t, http.MethodGet, "/api/auth/oauth/github/callback?code=good-code&state="+state, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing cookie")

	rec = s.do(t, http.MethodGet, "/api/auth/oauth/github/callback?code=good-code&state=forged", nil, "", stateCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid state parameter")

	rec = s.do(t, http.MethodGet, "/api/auth/oauth/github/callback?code=good-code&state="+state, nil, "", stateCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "octo@example.com", body["email"])
	assert.Equal(t, true, body["created"])
	assert.NotEmpty(t, body["access_token"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vividly_http_requests_total")
}
