package invites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service implements the invite token lifecycle:
// issued -> (revoked | expired | redeemed). Redeemed is terminal.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Issue mints a new invite token for the given administrator. email is
// optional and purely informational; it is not enforced at redemption.
func (s *Service) Issue(ctx context.Context, createdBy uuid.UUID, email *string, ttl time.Duration) (*InviteToken, error) {
	if ttl <= 0 {
		return nil, errors.New("invite ttl must be positive")
	}

	for attempt := 0; attempt < 3; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return nil, err
		}

		expiresAt := time.Now().UTC().Add(ttl)

		var invite InviteToken
		err = s.pool.QueryRow(ctx, `
			INSERT INTO invite_tokens (token, created_by, email, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, token, created_by, email, created_at, expires_at, used_at, used_by
		`, token, createdBy, email, expiresAt).Scan(
			&invite.ID,
			&invite.Token,
			&invite.CreatedBy,
			&invite.Email,
			&invite.CreatedAt,
			&invite.ExpiresAt,
			&invite.UsedAt,
			&invite.UsedBy,
		)
		if err == nil {
			return &invite, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Token collision (extremely unlikely); retry.
			continue
		}
		return nil, fmt.Errorf("failed to issue invite: %w", err)
	}

	return nil, fmt.Errorf("failed to issue invite: token collision retry exhausted")
}

// Validate looks up the token and reports whether it can still authorize a
// sign-up. The result distinguishes not-found, expired and already-used.
func (s *Service) Validate(ctx context.Context, token string) (ValidationResult, error) {
	if !ValidateTokenFormat(token) {
		return ValidationResult{Valid: false, Message: "Invite not found"}, nil
	}

	var email *string
	var expiresAt time.Time
	var usedAt *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT email, expires_at, used_at
		FROM invite_tokens
		WHERE token = $1
	`, token).Scan(&email, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ValidationResult{Valid: false, Message: "Invite not found"}, nil
		}
		return ValidationResult{}, fmt.Errorf("failed to load invite: %w", err)
	}

	switch classify(usedAt, expiresAt, time.Now().UTC()) {
	case ErrInviteAlreadyUsed:
		return ValidationResult{Valid: false, Message: "Invite already used"}, nil
	case ErrInviteExpired:
		return ValidationResult{Valid: false, Message: "Invite expired"}, nil
	}

	result := ValidationResult{Valid: true}
	if email != nil {
		result.Email = *email
	}
	return result, nil
}

// Redeem consumes the token for the given user. The conditional UPDATE is
// the only write: two racing redemptions are serialized by the database and
// exactly one sees RowsAffected == 1. There is no read-then-write window.
func (s *Service) Redeem(ctx context.Context, token string, userID uuid.UUID) (bool, error) {
	if !ValidateTokenFormat(token) {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE invite_tokens
		SET used_at = NOW(), used_by = $2
		WHERE token = $1
		  AND used_at IS NULL
		  AND expires_at > NOW()
	`, token, userID)
	if err != nil {
		return false, fmt.Errorf("failed to redeem invite: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Revoke deletes the token row. Allowed regardless of used or expired state;
// deletion is the administrator's override and has no cascading effects.
func (s *Service) Revoke(ctx context.Context, id, createdBy uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM invite_tokens
		WHERE id = $1
		  AND created_by = $2
	`, id, createdBy)
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}

	return nil
}

// List returns every token issued by the administrator, newest first.
// Used and expired tokens are included; they stay visible as audit records
// until the administrator deletes them.
func (s *Service) List(ctx context.Context, createdBy uuid.UUID) ([]InviteToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, token, created_by, email, created_at, expires_at, used_at, used_by
		FROM invite_tokens
		WHERE created_by = $1
		ORDER BY created_at DESC
	`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []InviteToken
	for rows.Next() {
		var inv InviteToken
		if err := rows.Scan(
			&inv.ID,
			&inv.Token,
			&inv.CreatedBy,
			&inv.Email,
			&inv.CreatedAt,
			&inv.ExpiresAt,
			&inv.UsedAt,
			&inv.UsedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invites: %w", err)
	}

	return invites, nil
}
