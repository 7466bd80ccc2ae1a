package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const opaqueTokenBytes = 32

// RandomString returns size random bytes encoded as unpadded URL-safe base64.
func RandomString(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// NewOpaqueToken returns a token for the user and the digest to persist.
// Only the digest is stored, so a leaked table cannot be replayed.
func NewOpaqueToken() (raw string, digest string, err error) {
	raw, err = RandomString(opaqueTokenBytes)
	if err != nil {
		return "", "", err
	}
	return raw, DigestToken(raw), nil
}

func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
