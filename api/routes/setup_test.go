package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vividly/api/handler"
	"vividly/api/middleware"
	"vividly/api/routes"
	"vividly/internal/repository"
	"vividly/internal/service"
	"vividly/internal/testutil"
	"vividly/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

type fakeGenerator struct {
	mu   sync.Mutex
	text string
	err  error
}

func (g *fakeGenerator) Generate(context.Context, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.err
}

type testServer struct {
	echo  *echo.Echo
	users repository.UserRepository
}

func newTestServer(t *testing.T, generator service.TextGenerator, providers ...service.OAuthProvider) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tokens, err := utils.NewTokenManager(utils.TokenConfig{
		Secret:     []byte("routes-secret"),
		Algorithm:  "HS256",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	tx := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	securityLogs := repository.NewSecurityLogRepository(db)
	projects := repository.NewProjectRepository(db)
	hasher := service.BcryptPasswordHasher{Cost: bcrypt.MinCost}

	auth := service.NewAuthService(
		tx, users, sessions, repository.NewVerificationTokenRepository(db), securityLogs,
		nil, hasher, tokens,
		service.MFATokenIssuerJWT{Secret: []byte("mfa-secret")},
		service.NewTOTPProvider("Vividly"),
		service.RealClock{},
		service.AuthConfig{OAuthSessionTTL: 24 * time.Hour},
		logger,
	)
	oauth := service.NewOAuthService(auth, tx, users, hasher, logger, providers...)
	codegen := service.NewCodegenService(generator, logger)
	projectSvc := service.NewProjectService(tx, projects, codegen, nil, service.RealClock{},
		service.ProjectConfig{
			PublicBaseURL: "https://vividly.test",
			Preview:       service.PreviewTokenSigner{Secret: []byte("preview-secret")},
		}, logger)
	userSvc := service.NewUserService(tx, users, sessions, projects, securityLogs, hasher, logger)

	validate := validator.New()
	e := echo.New()
	e.Use(middleware.Metrics)
	router := &routes.Router{
		Echo:           e,
		System:         &handler.SystemHandler{Version: "test", Environment: "test"},
		Auth:           handler.NewAuthHandler(auth, validate),
		OAuth:          handler.NewOAuthHandler(oauth, []byte("0123456789abcdef0123456789abcdef"), false),
		Users:          handler.NewUserHandler(userSvc, validate),
		Projects:       handler.NewProjectHandler(projectSvc, validate),
		Codegen:        handler.NewCodegenHandler(codegen, projectSvc, validate),
		AuthMiddleware: middleware.AuthMiddleware{Auth: auth},
	}
	router.RegisterRoutes()
	return &testServer{echo: e, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) registerAndLogin(t *testing.T, email, password string) tokenPair {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": email, "password": password, "confirm_password": password,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": email, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[envelope](t, rec)
	var pair tokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	return pair
}

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "login": "octo", "name": "Octo Cat"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"email": "octo@example.com", "primary": true, "verified": true}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func githubProvider(srv *httptest.Server) *service.GitHubProvider {
	provider := service.NewGitHubProvider(service.OAuthClientConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/api/auth/oauth/github/callback",
		HTTPClient:   srv.Client(),
	})
	provider.Config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	provider.APIBaseURL = srv.URL
	return provider
}
