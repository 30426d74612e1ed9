package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/auth"
)

// RunCleanupJob removes expired password reset tokens. Invite tokens are
// deliberately left alone: expired and redeemed invites stay visible to the
// issuing administrator until they delete them.
//
// Idempotent; this is the entry point called by the cron scheduler.
func RunCleanupJob(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Starting cleanup job")

	startTime := time.Now()

	purged, err := auth.PurgeExpiredResetTokens(ctx, pool)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired reset tokens")
		return fmt.Errorf("reset token cleanup failed: %w", err)
	}

	log.Info().
		Int64("reset_tokens_purged", purged).
		Dur("duration", time.Since(startTime)).
		Msg("Cleanup job completed")

	return nil
}
