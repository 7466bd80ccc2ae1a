package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidPreviewToken = errors.New("invalid preview token")

const previewTokenType = "preview"

// PreviewTokenSigner mints the token carried by shareable preview links,
// which a browser can open without a bearer header.
type PreviewTokenSigner struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

type previewClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (p PreviewTokenSigner) Enabled() bool {
	return len(p.Secret) > 0
}

func (p PreviewTokenSigner) Sign(projectID uuid.UUID) (string, error) {
	ttl := p.TTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := p.now()
	claims := previewClaims{
		Type: previewTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   projectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.Secret)
}

func (p PreviewTokenSigner) Parse(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &previewClaims{}, func(*jwt.Token) (any, error) {
		return p.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return uuid.Nil, errInvalidPreviewToken
	}
	claims, ok := parsed.Claims.(*previewClaims)
	if !ok || !parsed.Valid || claims.Type != previewTokenType {
		return uuid.Nil, errInvalidPreviewToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errInvalidPreviewToken
	}
	return id, nil
}

func (p PreviewTokenSigner) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
