package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/apperrors"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/identity"
	"github.com/pilotup/pilotup/internal/invites"
	"github.com/pilotup/pilotup/internal/validation"
)

// SignupRequest represents the signup request payload. Signup is
// invite-only: the token comes from the /signup?token=... link.
type SignupRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse represents the signup response
type SignupResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup processes invite-gated account creation.
// The user insert and the invite redemption commit together: a racer that
// loses the redemption never ends up with an account.
func HandleSignup(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Token = strings.TrimSpace(req.Token)
		if req.Token == "" {
			apperrors.WriteBadRequest(w, r, "Invite token is required")
			return
		}

		req.Email = validation.NormalizeAccountEmail(req.Email)
		if _, err := mail.ParseAddress(req.Email); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}

		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		userID, err := signupWithInvite(ctx, pool, req.Email, passwordHash, req.Token)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmailTaken):
				apperrors.WriteConflict(w, r, "Email address already registered")
			case errors.Is(err, invites.ErrInviteNotFound):
				apperrors.WriteNotFound(w, r, "Invite not found")
			case errors.Is(err, invites.ErrInviteExpired):
				apperrors.WriteError(w, r, http.StatusGone, "gone", "Invite expired")
			case errors.Is(err, invites.ErrInviteAlreadyUsed):
				apperrors.WriteConflict(w, r, "Invite already used")
			default:
				log.Error().Err(err).Msg("Failed to sign up user")
				apperrors.WriteInternalError(w, r, "Failed to create account")
			}
			return
		}

		if err := auditor.LogUserSignup(ctx, userID, req.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		if err := auditor.LogInviteRedeemed(ctx, userID, req.Token); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		issueSession(w, r, userID, jwtSecret, sessionDays, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusCreated, SignupResponse{
			UserID: userID,
			Email:  req.Email,
		})
	}
}

// HandleLogin processes email/password login and issues a session cookie.
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Email = validation.NormalizeAccountEmail(req.Email)
		if req.Email == "" || req.Password == "" {
			apperrors.WriteBadRequest(w, r, "Email and password are required")
			return
		}

		var userID uuid.UUID
		var passwordHash string
		err := pool.QueryRow(ctx, `
			SELECT id, password_hash FROM users WHERE email = $1
		`, req.Email).Scan(&userID, &passwordHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if logErr := auditor.LogLoginFailed(ctx, req.Email, r.RemoteAddr); logErr != nil {
					log.Error().Err(logErr).Msg("Failed to log audit event")
				}
				apperrors.WriteUnauthorized(w, r, "Invalid email or password")
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			apperrors.WriteInternalError(w, r, "Failed to log in")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			if logErr := auditor.LogLoginFailed(ctx, req.Email, r.RemoteAddr); logErr != nil {
				log.Error().Err(logErr).Msg("Failed to log audit event")
			}
			apperrors.WriteUnauthorized(w, r, "Invalid email or password")
			return
		}

		issueSession(w, r, userID, jwtSecret, sessionDays, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user_id": userID,
			"email":   req.Email,
		})
	}
}

// HandleLogout clears the session cookie.
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ClearSessionCookie(w)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"logged_out": true,
		})
	}
}

// HandleMe returns the authenticated admin's identity. The session itself
// is validated from the cookie; only the email needs a lookup.
func HandleMe(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := identity.GetUserID(ctx)

		var email string
		err := pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				ClearSessionCookie(w)
				apperrors.WriteUnauthorized(w, r, "Session user no longer exists")
				return
			}
			log.Error().Err(err).Msg("Failed to load user")
			apperrors.WriteInternalError(w, r, "Failed to load session")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user_id": userID,
			"email":   email,
		})
	}
}

func issueSession(w http.ResponseWriter, r *http.Request, userID uuid.UUID, jwtSecret string, sessionDays int, isProduction bool) {
	token, err := CreateToken(userID, jwtSecret, sessionDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session token")
		return
	}
	SetSessionCookie(w, token, sessionDays, isProduction)

	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate CSRF token")
		return
	}
	SetCSRFCookie(w, csrfToken, isProduction)
}
