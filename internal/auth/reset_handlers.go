package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/apperrors"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/loops"
	"github.com/pilotup/pilotup/internal/validation"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleForgotPassword handles POST /api/v1/auth/forgot-password.
// Always answers 200 with the same body so the endpoint cannot be used to
// probe which emails have accounts.
func HandleForgotPassword(pool *pgxpool.Pool, auditor *audit.Writer, mailer *loops.Client, baseURL string, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Email = validation.NormalizeAccountEmail(req.Email)
		if req.Email == "" {
			apperrors.WriteBadRequest(w, r, "Email is required")
			return
		}

		token, userID, err := CreateResetToken(ctx, pool, req.Email, ttl)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				log.Error().Err(err).Msg("Failed to create reset token")
			}
			// Fall through to the generic response either way.
		} else {
			if err := mailer.SendPasswordReset(ctx, req.Email, ResetURL(baseURL, token)); err != nil {
				log.Error().Err(err).Msg("Failed to send reset email")
			} else if err := auditor.LogPasswordResetSent(ctx, userID); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"sent": true,
		})
	}
}

// HandleResetPassword handles POST /api/v1/auth/reset-password.
func HandleResetPassword(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Token = strings.TrimSpace(req.Token)
		if req.Token == "" {
			apperrors.WriteBadRequest(w, r, "Reset token is required")
			return
		}
		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to reset password")
			return
		}

		userID, err := ConsumeResetToken(ctx, pool, req.Token, passwordHash)
		if err != nil {
			if errors.Is(err, ErrResetTokenInvalid) {
				apperrors.WriteUnauthorized(w, r, "Reset link is invalid or has expired")
				return
			}
			log.Error().Err(err).Msg("Failed to consume reset token")
			apperrors.WriteInternalError(w, r, "Failed to reset password")
			return
		}

		if err := auditor.LogPasswordResetDone(ctx, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reset": true,
		})
	}
}
