package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateToken_RoundTrip(t *testing.T) {
	userID := uuid.New()
	secret := "test-secret"

	token, err := CreateToken(userID, secret, 7)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, userID.String(), claims.Subject)
	require.NotNil(t, claims.ExpiresAt)

	// Expiry lands roughly sessionDays out.
	remaining := time.Until(claims.ExpiresAt.Time)
	require.Greater(t, remaining, 6*24*time.Hour)
	require.LessOrEqual(t, remaining, 7*24*time.Hour)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := CreateToken(uuid.New(), "secret-a", 7)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret-b")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := CreateToken(uuid.New(), "secret", -1)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	require.Error(t, err)
}

func TestValidateToken_Tampered(t *testing.T) {
	token, err := CreateToken(uuid.New(), "secret", 7)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = ValidateToken(tampered, "secret")
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ValidateToken(input, "secret")
		require.Error(t, err, "input %q", input)
	}
}
