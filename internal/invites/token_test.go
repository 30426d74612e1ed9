package invites

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken_LengthAndAlphabet(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	require.Len(t, token, TokenLength)

	for _, r := range token {
		require.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected rune %q in token", r)
	}
}

func TestGenerateToken_NoCollisions(t *testing.T) {
	const n = 10000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		require.Len(t, token, TokenLength)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token after %d generations", i)
		seen[token] = struct{}{}
	}
}

func TestValidateTokenFormat(t *testing.T) {
	valid, err := GenerateToken()
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"generated token", valid, true},
		{"empty", "", false},
		{"too short", valid[:TokenLength-1], false},
		{"too long", valid + "a", false},
		{"hyphen", strings.Repeat("a", TokenLength-1) + "-", false},
		{"space", strings.Repeat("a", TokenLength-1) + " ", false},
		{"non-ascii", strings.Repeat("a", TokenLength-1) + "é", false},
		{"all digits", strings.Repeat("7", TokenLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ValidateTokenFormat(tt.token))
		})
	}
}
