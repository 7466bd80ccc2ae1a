package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vividly/internal/entity"
	"vividly/internal/metrics"
	"vividly/internal/repository"
	"vividly/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Compared against on unknown emails so the response time does not reveal
// whether an account exists.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type AuthService struct {
	tx            repository.Transactor
	users         repository.UserRepository
	sessions      repository.SessionRepository
	verifications repository.VerificationTokenRepository
	securityLogs  repository.SecurityLogRepository

	emailSender  EmailSender
	passwordHash PasswordHasher
	tokens       TokenIssuer
	mfaTokens    MFATokenIssuer
	mfaProvider  MFAProvider
	clock        Clock
	config       AuthConfig
	logger       logrus.FieldLogger
}

func NewAuthService(
	tx repository.Transactor,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	verifications repository.VerificationTokenRepository,
	securityLogs repository.SecurityLogRepository,
	emailSender EmailSender,
	passwordHash PasswordHasher,
	tokens TokenIssuer,
	mfaTokens MFATokenIssuer,
	mfaProvider MFAProvider,
	clock Clock,
	config AuthConfig,
	logger logrus.FieldLogger,
) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		tx:            tx,
		users:         users,
		sessions:      sessions,
		verifications: verifications,
		securityLogs:  securityLogs,
		emailSender:   emailSender,
		passwordHash:  passwordHash,
		tokens:        tokens,
		mfaTokens:     mfaTokens,
		mfaProvider:   mfaProvider,
		clock:         clock,
		config:        config,
		logger:        logger,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("error registering user", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, internal("error registering user", err)
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    trimmed(input.FirstName),
		LastName:     trimmed(input.LastName),
		IsActive:     true,
	}
	// A concurrent registration that slipped past the read above is caught
	// by the unique index and reported generically.
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.WithError(err).WithField("email", email).Error("create user failed")
		return nil, internal("error registering user", err)
	}

	if err := s.sendEmailVerification(ctx, user); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("verification email not sent")
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("error during login", err)
	}
	if user == nil {
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		s.logSecurity(ctx, nil, input.IPAddress, input.UserAgent, entity.LoginFailed, map[string]any{"email": email})
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	passwordOK := s.passwordHash.Verify(user.PasswordHash, input.Password)
	if !user.IsActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, ErrInactiveAccount
	}
	if !passwordOK {
		s.logSecurity(ctx, &user.ID, input.IPAddress, input.UserAgent, entity.LoginFailed, map[string]any{"email": email})
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled && s.mfaTokens != nil && s.mfaProvider != nil {
		mfaToken, expiresIn, err := s.mfaTokens.IssueMFAToken(user.ID)
		if err != nil {
			return nil, internal("error during login", err)
		}
		metrics.LoginAttempts.WithLabelValues("mfa_required").Inc()
		return &LoginResult{
			MFARequired:       true,
			MFAToken:          mfaToken,
			MFATokenExpiresIn: int64(expiresIn.Seconds()),
		}, nil
	}

	result, err := s.IssueSession(ctx, user, s.tokens.RefreshTTL(), input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	metrics.SessionsIssued.WithLabelValues("password").Inc()
	s.logSecurity(ctx, &user.ID, input.IPAddress, input.UserAgent, entity.LoginSuccess, nil)
	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return result, nil
}

func (s *AuthService) LoginWithMFA(ctx context.Context, input LoginMFAInput) (*LoginResult, error) {
	if s.mfaProvider == nil || s.mfaTokens == nil {
		return nil, ErrMFANotConfigured
	}
	userID, err := s.mfaTokens.ParseMFAToken(input.MFAToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error during login", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return nil, ErrMFANotConfigured
	}
	if !s.mfaProvider.ValidateCode(*user.TwoFactorSecret, input.Code) {
		s.logSecurity(ctx, &user.ID, input.IPAddress, input.UserAgent, entity.TwoFactorFailed, nil)
		return nil, ErrInvalidMFACode
	}

	result, err := s.IssueSession(ctx, user, s.tokens.RefreshTTL(), input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	metrics.SessionsIssued.WithLabelValues("password_mfa").Inc()
	s.logSecurity(ctx, &user.ID, input.IPAddress, input.UserAgent, entity.LoginSuccess, map[string]any{"mfa": true})
	return result, nil
}

// Refresh mints a new access token and hands back the same refresh token.
// Neither the session rows nor the active flag are consulted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	verified, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	claims, ok := verified.(utils.RefreshClaims)
	if !ok {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error refreshing token", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	accessToken, err := s.tokens.IssueAccess(user.ID.String())
	if err != nil {
		return nil, internal("error refreshing token", err)
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return internal("error during logout", err)
	}
	s.logSecurity(ctx, &userID, ipAddress, nil, entity.Logout, nil)
	s.logger.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]entity.Session, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, internal("error listing sessions", err)
	}
	return sessions, nil
}

func (s *AuthService) RevokeAllSessions(ctx context.Context, userID uuid.UUID, ipAddress *string) (int64, error) {
	count, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, internal("error revoking sessions", err)
	}
	s.logSecurity(ctx, &userID, ipAddress, nil, entity.SessionRevoked, map[string]any{"count": count})
	return count, nil
}

// Authenticate resolves the user behind an access token. Refresh tokens are
// rejected, and an inactive account is an authorization failure.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	verified, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := verified.(utils.AccessClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error authenticating user", err)
	}
	if user == nil {
		return nil, ErrUnknownSubject
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// IssueSession signs a token pair, stores the session row and stamps the
// last login in one transaction. It joins a transaction already on ctx.
func (s *AuthService) IssueSession(
	ctx context.Context,
	user *entity.User,
	ttl time.Duration,
	ipAddress *string,
	userAgent *string,
) (*LoginResult, error) {
	subject := user.ID.String()
	accessToken, err := s.tokens.IssueAccess(subject)
	if err != nil {
		return nil, internal("error creating session", err)
	}
	refreshToken, err := s.tokens.IssueRefresh(subject)
	if err != nil {
		return nil, internal("error creating session", err)
	}

	now := s.now()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		session := &entity.Session{
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			UserAgent:    userAgent,
			IPAddress:    ipAddress,
			ExpiresAt:    now.Add(ttl),
			LastUsedAt:   &now,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return err
		}
		return s.users.TouchLastLogin(ctx, user.ID, now)
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("create session failed")
		return nil, internal("error creating session", err)
	}
	user.LastLoginAt = &now

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	verification, err := s.verifications.FindValid(ctx, utils.DigestToken(token), entity.EmailVerify, s.now())
	if err != nil {
		return internal("error verifying email", err)
	}
	if verification == nil {
		return ErrVerificationExpired
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.VerifyEmail(ctx, verification.UserID); err != nil {
			return err
		}
		return s.verifications.MarkUsed(ctx, verification.ID, s.now())
	})
	if err != nil {
		return internal("error verifying email", err)
	}
	return nil
}

func (s *AuthService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return internal("error sending verification email", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	if s.emailSender == nil {
		return ErrEmailNotConfigured
	}
	if err := s.sendEmailVerification(ctx, user); err != nil {
		return internal("error sending verification email", err)
	}
	return nil
}

// RequestPasswordReset succeeds silently for unknown emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return internal("error requesting password reset", err)
	}
	if user == nil || !user.IsActive {
		return nil
	}

	token, err := s.createVerificationToken(ctx, user.ID, entity.PasswordReset, s.resetTokenTTL())
	if err != nil {
		return internal("error requesting password reset", err)
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("password reset email not sent")
		}
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	verification, err := s.verifications.FindValid(ctx, utils.DigestToken(token), entity.PasswordReset, s.now())
	if err != nil {
		return internal("error resetting password", err)
	}
	if verification == nil {
		return ErrVerificationExpired
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return internal("error resetting password", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, verification.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		if err := s.verifications.MarkUsed(ctx, verification.ID, s.now()); err != nil {
			return err
		}
		_, err = s.sessions.RevokeAll(ctx, user.ID)
		return err
	})
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return internal("error resetting password", err)
	}

	s.logSecurity(ctx, &verification.UserID, nil, nil, entity.Reset, nil)
	return nil
}

func (s *AuthService) EnableMFA(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	if s.mfaProvider == nil {
		return nil, ErrMFANotConfigured
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error enabling two-factor authentication", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.TwoFactorEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	secret, otpauthURL, err := s.mfaProvider.GenerateSecret(user.Email)
	if err != nil {
		return nil, internal("error enabling two-factor authentication", err)
	}
	user.TwoFactorSecret = &secret
	if err := s.users.Update(ctx, user); err != nil {
		return nil, internal("error enabling two-factor authentication", err)
	}
	return &MFASetup{Secret: secret, OTPAuthURL: otpauthURL}, nil
}

func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if s.mfaProvider == nil {
		return ErrMFANotConfigured
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return internal("error verifying two-factor code", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.TwoFactorSecret == nil {
		return ErrMFANotConfigured
	}
	if !s.mfaProvider.ValidateCode(*user.TwoFactorSecret, code) {
		return ErrInvalidMFACode
	}

	user.TwoFactorEnabled = true
	if err := s.users.Update(ctx, user); err != nil {
		return internal("error verifying two-factor code", err)
	}
	s.logSecurity(ctx, &user.ID, nil, nil, entity.TwoFactorEnabled, nil)
	return nil
}

func (s *AuthService) DisableMFA(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return internal("error disabling two-factor authentication", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !s.passwordHash.Verify(user.PasswordHash, password) {
		return ErrIncorrectPassword
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	if err := s.users.Update(ctx, user); err != nil {
		return internal("error disabling two-factor authentication", err)
	}
	s.logSecurity(ctx, &user.ID, nil, nil, entity.TwoFactorDisabled, nil)
	return nil
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("error loading user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) sendEmailVerification(ctx context.Context, user *entity.User) error {
	if s.emailSender == nil {
		return nil
	}
	token, err := s.createVerificationToken(ctx, user.ID, entity.EmailVerify, s.verificationTokenTTL())
	if err != nil {
		return err
	}
	return s.emailSender.SendVerificationEmail(ctx, user.Email, token)
}

func (s *AuthService) createVerificationToken(
	ctx context.Context,
	userID uuid.UUID,
	typeValue entity.VerificationType,
	ttl time.Duration,
) (string, error) {
	if err := s.verifications.InvalidateOutstanding(ctx, userID, typeValue, s.now()); err != nil {
		return "", err
	}
	rawToken, digest, err := utils.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	verification := &entity.VerificationToken{
		UserID:    userID,
		TokenHash: digest,
		Type:      typeValue,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return "", err
	}
	return rawToken, nil
}

func (s *AuthService) logSecurity(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	userAgent *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	recordSecurityEvent(ctx, s.securityLogs, s.logger, userID, ipAddress, userAgent, action, metadata)
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *AuthService) verificationTokenTTL() time.Duration {
	if s.config.VerificationTokenTTL > 0 {
		return s.config.VerificationTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return 30 * time.Minute
}

func (s *AuthService) oauthSessionTTL() time.Duration {
	if s.config.OAuthSessionTTL > 0 {
		return s.config.OAuthSessionTTL
	}
	return 24 * time.Hour
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
