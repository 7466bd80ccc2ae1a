package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"vividly/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	OAuthSessionTTL      time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
}

type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email string, token string) error
	SendPasswordResetEmail(ctx context.Context, email string, token string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

// TokenIssuer is satisfied by *utils.TokenManager.
type TokenIssuer interface {
	IssueAccess(subject string) (string, error)
	IssueRefresh(subject string) (string, error)
	Verify(token string) (utils.VerifiedToken, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type MFATokenIssuer interface {
	IssueMFAToken(userID uuid.UUID) (string, time.Duration, error)
	ParseMFAToken(token string) (uuid.UUID, error)
}

type MFAProvider interface {
	GenerateSecret(accountName string) (secret string, otpauthURL string, err error)
	ValidateCode(secret string, code string) bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// bcrypt only looks at the first 72 bytes and x/crypto rejects anything
// longer, so longer passwords are hashed down first.
const bcryptMaxPasswordBytes = 72

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify never panics; a malformed or foreign digest simply fails.
func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxPasswordBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
