package invites

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/apperrors"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/identity"
)

type CreateRequest struct {
	Email    string `json:"email"`
	TTLHours int    `json:"ttl_hours"`
}

type CreateResponse struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt string    `json:"expires_at"`
	SignupURL string    `json:"signup_url"`
}

// SignupURL builds the sign-up link for a token: site origin plus
// /signup?token=<urlencoded token>.
func SignupURL(baseURL, token string) string {
	return baseURL + "/signup?token=" + url.QueryEscape(token)
}

// HandleCreate handles POST /api/v1/invites
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer, baseURL string, defaultTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := identity.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		var email *string
		req.Email = strings.TrimSpace(req.Email)
		if req.Email != "" {
			if len(req.Email) > 320 {
				apperrors.WriteBadRequest(w, r, "Email is too long")
				return
			}
			if _, err := mail.ParseAddress(req.Email); err != nil {
				apperrors.WriteBadRequest(w, r, "Invalid email address")
				return
			}
			email = &req.Email
		}

		ttl := defaultTTL
		if req.TTLHours != 0 {
			if req.TTLHours < 0 || req.TTLHours > 24*365 {
				apperrors.WriteBadRequest(w, r, "ttl_hours must be between 1 and 8760")
				return
			}
			ttl = time.Duration(req.TTLHours) * time.Hour
		}

		service := NewService(pool)
		invite, err := service.Issue(ctx, userID, email, ttl)
		if err != nil {
			log.Error().Err(err).Msg("Failed to issue invite")
			apperrors.WriteInternalError(w, r, "Failed to issue invite")
			return
		}

		if err := auditor.LogInviteCreated(ctx, userID, invite.ID, req.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		resp := CreateResponse{
			ID:        invite.ID,
			Token:     invite.Token,
			Email:     req.Email,
			ExpiresAt: invite.ExpiresAt.Format(time.RFC3339),
			SignupURL: SignupURL(baseURL, invite.Token),
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invite": resp,
		})
	}
}

// HandleList handles GET /api/v1/invites
func HandleList(pool *pgxpool.Pool, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := identity.GetUserID(ctx)

		service := NewService(pool)
		invites, err := service.List(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list invites")
			apperrors.WriteInternalError(w, r, "Failed to list invites")
			return
		}

		type listItem struct {
			InviteToken
			SignupURL string `json:"signup_url"`
		}
		items := make([]listItem, 0, len(invites))
		for _, inv := range invites {
			items = append(items, listItem{InviteToken: inv, SignupURL: SignupURL(baseURL, inv.Token)})
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invites": items,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/invites/{invite_id}
func HandleRevoke(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := identity.GetUserID(ctx)

		inviteIDStr := chi.URLParam(r, "invite_id")
		inviteID, err := uuid.Parse(inviteIDStr)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invite ID")
			return
		}

		service := NewService(pool)
		if err := service.Revoke(ctx, inviteID, userID); err != nil {
			if errors.Is(err, ErrInviteNotFound) {
				apperrors.WriteNotFound(w, r, "Invite not found")
				return
			}
			log.Error().Err(err).Msg("Failed to revoke invite")
			apperrors.WriteInternalError(w, r, "Failed to revoke invite")
			return
		}

		if err := auditor.LogInviteRevoked(ctx, userID, inviteID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleValidate handles GET /api/v1/invites/validate?token=...
// Public: the sign-up page calls it before rendering the form and refuses
// to render when the result is not valid.
func HandleValidate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			apperrors.WriteBadRequest(w, r, "Invite token is required")
			return
		}

		service := NewService(pool)
		result, err := service.Validate(r.Context(), token)
		if err != nil {
			log.Error().Err(err).Msg("Failed to validate invite")
			apperrors.WriteInternalError(w, r, "Failed to validate invite")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, result)
	}
}
