package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup        = "user.signup"
	EventLoginFailed       = "auth.login_failed"
	EventPasswordResetSent = "auth.password_reset_sent"
	EventPasswordResetDone = "auth.password_reset_done"
	EventInviteCreated     = "invite.created"
	EventInviteRevoked     = "invite.revoked"
	EventInviteRedeemed    = "invite.redeemed"
	EventAnnouncementSaved = "announcement.saved"
	EventWaitlistForwarded = "waitlist.forwarded"
)

// Event represents an audit log entry.
type Event struct {
	ID          uuid.UUID              `db:"id"`
	ActorUserID uuid.NullUUID          `db:"actor_user_id"`
	Action      string                 `db:"action"`
	Meta        map[string]interface{} `db:"meta"`
	CreatedAt   time.Time              `db:"created_at"`
}

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO audit_log (actor_user_id, action, meta)
		VALUES ($1, $2, $3)
	`

	actorUserID := toNullUUID(params.ActorUserID)

	_, err := w.pool.Exec(ctx, query, actorUserID, params.Action, metaJSON)
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Info().
		Str("action", params.Action).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogPasswordResetSent(ctx context.Context, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventPasswordResetSent,
		Meta:        map[string]interface{}{},
	})
}

func (w *Writer) LogPasswordResetDone(ctx context.Context, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventPasswordResetDone,
		Meta:        map[string]interface{}{},
	})
}

func (w *Writer) LogInviteCreated(ctx context.Context, actorUserID, inviteID uuid.UUID, email string) error {
	meta := map[string]interface{}{
		"invite_id": inviteID.String(),
	}
	if email != "" {
		meta["email"] = email
	}
	return w.Log(ctx, LogParams{
		ActorUserID: &actorUserID,
		Action:      EventInviteCreated,
		Meta:        meta,
	})
}

func (w *Writer) LogInviteRevoked(ctx context.Context, actorUserID, inviteID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &actorUserID,
		Action:      EventInviteRevoked,
		Meta: map[string]interface{}{
			"invite_id": inviteID.String(),
		},
	})
}

func (w *Writer) LogInviteRedeemed(ctx context.Context, userID uuid.UUID, token string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventInviteRedeemed,
		Meta: map[string]interface{}{
			"token_suffix": tokenSuffix(token),
		},
	})
}

func (w *Writer) LogAnnouncementSaved(ctx context.Context, actorUserID uuid.UUID, visible bool, blockCount int) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &actorUserID,
		Action:      EventAnnouncementSaved,
		Meta: map[string]interface{}{
			"is_visible":  visible,
			"block_count": blockCount,
		},
	})
}

func (w *Writer) LogWaitlistForwarded(ctx context.Context, email, source string) error {
	return w.Log(ctx, LogParams{
		Action: EventWaitlistForwarded,
		Meta: map[string]interface{}{
			"email":  email,
			"source": source,
		},
	})
}

// tokenSuffix keeps only the last 6 characters so the audit trail can
// correlate redemptions without storing a live bearer credential.
func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "..." + token[len(token)-6:]
}
