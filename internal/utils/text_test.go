package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "My Landing Page", want: "my-landing-page"},
		{in: "  Café   Crème!! ", want: "cafe-creme"},
		{in: "---", want: "project"},
		{in: "Neon_Vibes 2025", want: "neon-vibes-2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}

	long := Slugify(strings.Repeat("abc ", 40))
	assert.LessOrEqual(t, len(long), maxSlugLength)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ada King Lovelace")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last = SplitName("octocat")
	assert.Equal(t, "octocat", first)
	assert.Empty(t, last)

	first, last = SplitName("   ")
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	// fullwidth letters fold to ASCII under NFKC
	assert.Equal(t, "bob@example.com", NormalizeEmail("\uff42\uff4f\uff42@example.com"))
}

func TestNewOpaqueToken(t *testing.T) {
	raw, digest, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, raw, 43)
	assert.Equal(t, digest, DigestToken(raw))
	assert.NotEqual(t, raw, digest)

	other, _, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
	assert.NotEqual(t, DigestToken("abc"), DigestToken("abd"))
}
