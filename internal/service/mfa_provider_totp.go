package service

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type TOTPProvider struct {
	Issuer string
	Skew   uint
	Now    func() time.Time
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Vividly"
	}
	return &TOTPProvider{Issuer: issuer, Skew: 1}
}

// GenerateSecret returns the base32 secret and the otpauth:// URL that
// authenticator apps scan.
func (p *TOTPProvider) GenerateSecret(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (p *TOTPProvider) ValidateCode(secret string, code string) bool {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      p.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
