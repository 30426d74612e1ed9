package invites

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInviteNotFound    = errors.New("invite token not found")
	ErrInviteExpired     = errors.New("invite token expired")
	ErrInviteAlreadyUsed = errors.New("invite token already used")
)

// InviteToken is a single-use, time-boxed bearer credential authorizing one
// account sign-up. The token itself is stored verbatim so the issuing admin
// can rebuild the sign-up link from List.
type InviteToken struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Token     string     `db:"token" json:"token"`
	CreatedBy uuid.UUID  `db:"created_by" json:"created_by"`
	Email     *string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedBy    *uuid.UUID `db:"used_by" json:"used_by,omitempty"`
}

// Redeemable reports whether the token can still authorize a sign-up:
// it must be unused and its expiry must lie in the future.
func (t *InviteToken) Redeemable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// ValidationResult is the tri-state outcome of checking a token before
// rendering the sign-up form. Message distinguishes not-found, expired and
// already-used so the page can tell the visitor what went wrong.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}

// classify maps an invite's stored state to the sentinel error describing
// why it is not redeemable, or nil if it still is. Expiry is a derived
// predicate, never a stored state.
func classify(usedAt *time.Time, expiresAt, now time.Time) error {
	if usedAt != nil {
		return ErrInviteAlreadyUsed
	}
	if !now.Before(expiresAt) {
		return ErrInviteExpired
	}
	return nil
}
