package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const refreshTokenType = "refresh"

type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// VerifiedToken is either AccessClaims or RefreshClaims.
type VerifiedToken interface {
	TokenSubject() string
	isVerifiedToken()
}

type AccessClaims struct {
	Subject   string
	ExpiresAt time.Time
}

type RefreshClaims struct {
	Subject   string
	ExpiresAt time.Time
}

func (c AccessClaims) TokenSubject() string  { return c.Subject }
func (c RefreshClaims) TokenSubject() string { return c.Subject }
func (AccessClaims) isVerifiedToken()        {}
func (RefreshClaims) isVerifiedToken()       {}

type tokenClaims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	config TokenConfig
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(cfg.Algorithm) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{config: cfg, method: method, now: time.Now}, nil
}

// WithClock returns a copy that reads time from now.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *m
	clone.now = now
	return &clone
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

func (m *TokenManager) IssueAccess(subject string) (string, error) {
	return m.issue(subject, "", m.config.AccessTTL)
}

func (m *TokenManager) IssueRefresh(subject string) (string, error) {
	return m.issue(subject, refreshTokenType, m.config.RefreshTTL)
}

func (m *TokenManager) issue(subject string, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := tokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.config.Secret)
}

// Verify checks signature and expiry and tags the result by its type claim.
// It does not consult the session store.
func (m *TokenManager) Verify(tokenString string) (VerifiedToken, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		return m.config.Secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	expiresAt := claims.ExpiresAt.Time
	switch claims.Type {
	case "":
		return AccessClaims{Subject: claims.Subject, ExpiresAt: expiresAt}, nil
	case refreshTokenType:
		return RefreshClaims{Subject: claims.Subject, ExpiresAt: expiresAt}, nil
	default:
		return nil, ErrInvalidToken
	}
}
