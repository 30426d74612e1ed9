package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const resetTokenBytes = 32

var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

// GenerateResetToken returns a fresh reset token and its sha256 hash.
// Unlike invite tokens, only the hash is stored; the token appears in
// exactly one email and is never listed again.
func GenerateResetToken() (token string, hash []byte, err error) {
	randomBytes := make([]byte, resetTokenBytes)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = base64.RawURLEncoding.EncodeToString(randomBytes)
	hash = HashResetToken(token)
	return token, hash, nil
}

func HashResetToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

// ResetURL builds the password reset link for a token.
func ResetURL(baseURL, token string) string {
	return baseURL + "/reset-password?token=" + url.QueryEscape(token)
}

// CreateResetToken mints a time-boxed reset token for the user with the
// given email. Returns the plaintext token and the user's ID, or
// pgx.ErrNoRows when no account matches (callers must not reveal that to
// the requester).
func CreateResetToken(ctx context.Context, pool *pgxpool.Pool, email string, ttl time.Duration) (string, uuid.UUID, error) {
	var userID uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err != nil {
		return "", uuid.Nil, err
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return "", uuid.Nil, err
	}

	expiresAt := time.Now().UTC().Add(ttl)
	_, err = pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, hash, expiresAt)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, userID, nil
}

// ConsumeResetToken redeems a reset token and updates the user's password
// hash. Single-use is enforced the same way as invite redemption: one
// conditional UPDATE on `used_at IS NULL AND expires_at > NOW()`.
func ConsumeResetToken(ctx context.Context, pool *pgxpool.Pool, token, newPasswordHash string) (uuid.UUID, error) {
	hash := HashResetToken(token)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE token_hash = $1
		  AND used_at IS NULL
		  AND expires_at > NOW()
		RETURNING user_id
	`, hash).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrResetTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, newPasswordHash)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return userID, nil
}

// PurgeExpiredResetTokens deletes reset tokens past their expiry. Run from
// the maintenance cron; idempotent.
func PurgeExpiredResetTokens(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
