package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pilotup/pilotup/internal/invites"
)

var ErrEmailTaken = errors.New("email address already registered")

// signupWithInvite inserts the user and redeems the invite in one
// transaction. The redemption is a conditional UPDATE guarded on
// `used_at IS NULL AND expires_at > NOW()`; when two sign-ups race on the
// same token the database serializes them and the loser's insert rolls
// back with the failed redemption.
func signupWithInvite(ctx context.Context, pool *pgxpool.Pool, email, passwordHash, token string) (uuid.UUID, error) {
	if !invites.ValidateTokenFormat(token) {
		return uuid.Nil, invites.ErrInviteNotFound
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	userID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
	`, userID, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrEmailTaken
		}
		return uuid.Nil, fmt.Errorf("failed to insert user: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invite_tokens
		SET used_at = NOW(), used_by = $2
		WHERE token = $1
		  AND used_at IS NULL
		  AND expires_at > NOW()
	`, token, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to redeem invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The update matched nothing; find out why for the caller. The
		// rollback undoes the user insert regardless.
		var expiresAt time.Time
		var usedAt *time.Time
		err := tx.QueryRow(ctx, `
			SELECT expires_at, used_at FROM invite_tokens WHERE token = $1
		`, token).Scan(&expiresAt, &usedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return uuid.Nil, invites.ErrInviteNotFound
			}
			return uuid.Nil, fmt.Errorf("failed to load invite: %w", err)
		}
		if usedAt != nil {
			return uuid.Nil, invites.ErrInviteAlreadyUsed
		}
		return uuid.Nil, invites.ErrInviteExpired
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return userID, nil
}
