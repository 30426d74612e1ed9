package invites

import (
	"crypto/rand"
	"fmt"
)

const (
	// TokenLength is the exact length of every invite token.
	TokenLength = 32

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateToken produces a 32-character token drawn uniformly from the
// 62-symbol alphanumeric alphabet (~190 bits of entropy). The token is a
// bearer credential for account creation, so it must come from crypto/rand.
func GenerateToken() (string, error) {
	// Largest multiple of 62 below 256; bytes at or above it are discarded
	// so the modulo reduction stays uniform.
	const cutoff = 248

	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)

	for len(out) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= cutoff {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}

	return string(out), nil
}

// ValidateTokenFormat reports whether token has the exact shape produced by
// GenerateToken. Lookups for malformed tokens can be skipped entirely.
func ValidateTokenFormat(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
