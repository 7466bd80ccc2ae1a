package service_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"vividly/internal/entity"
	"vividly/internal/repository"
	"vividly/internal/service"
	"vividly/internal/testutil"
	"vividly/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verification: map[string]string{}, reset: map[string]string{}}
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[email] = token
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, email string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = token
	return nil
}

type stubGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type fixture struct {
	db            *gorm.DB
	tx            repository.Transactor
	users         repository.UserRepository
	sessions      repository.SessionRepository
	verifications repository.VerificationTokenRepository
	securityLogs  repository.SecurityLogRepository
	projects      repository.ProjectRepository

	hasher service.PasswordHasher
	tokens *utils.TokenManager
	mailer *recordingMailer
	logger logrus.FieldLogger

	auth     *service.AuthService
	userSvc  *service.UserService
	oauthTTL time.Duration
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	tokens, err := utils.NewTokenManager(utils.TokenConfig{
		Secret:     []byte("test-secret"),
		Algorithm:  "HS256",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	f := &fixture{
		db:            db,
		tx:            repository.NewTransactor(db),
		users:         repository.NewUserRepository(db),
		sessions:      repository.NewSessionRepository(db),
		verifications: repository.NewVerificationTokenRepository(db),
		securityLogs:  repository.NewSecurityLogRepository(db),
		projects:      repository.NewProjectRepository(db),
		hasher:        service.BcryptPasswordHasher{Cost: bcrypt.MinCost},
		tokens:        tokens,
		mailer:        newRecordingMailer(),
		logger:        quietLogger(),
		oauthTTL:      24 * time.Hour,
	}

	f.auth = service.NewAuthService(
		f.tx,
		f.users,
		f.sessions,
		f.verifications,
		f.securityLogs,
		f.mailer,
		f.hasher,
		f.tokens,
		service.MFATokenIssuerJWT{Secret: []byte("mfa-secret")},
		service.NewTOTPProvider("Vividly"),
		service.RealClock{},
		service.AuthConfig{OAuthSessionTTL: f.oauthTTL},
		f.logger,
	)
	f.userSvc = service.NewUserService(f.tx, f.users, f.sessions, f.projects, f.securityLogs, f.hasher, f.logger)
	return f
}

func (f *fixture) register(t *testing.T, email string, password string) *entity.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), service.RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) login(t *testing.T, email string, password string) *service.LoginResult {
	t.Helper()
	result, err := f.auth.Login(context.Background(), service.LoginInput{Email: email, Password: password})
	require.NoError(t, err)
	return result
}

func (f *fixture) projectService(generator service.TextGenerator, exports service.ExportStore) *service.ProjectService {
	var codegen *service.CodegenService
	if generator != nil {
		codegen = service.NewCodegenService(generator, f.logger)
	}
	return service.NewProjectService(
		f.tx,
		f.projects,
		codegen,
		exports,
		service.RealClock{},
		service.ProjectConfig{
			PublicBaseURL: "https://vividly.test",
			Preview:       service.PreviewTokenSigner{Secret: []byte("preview-secret")},
		},
		f.logger,
	)
}
