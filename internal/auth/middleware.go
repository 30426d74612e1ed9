package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/identity"
)

// SessionMiddleware validates the session cookie and injects the admin's
// user ID into context via the identity package. Sessions come from local
// persisted state only; no database round trip happens per request.
// Invalid cookies are cleared and the request continues unauthenticated.
func SessionMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := GetSessionCookie(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Msg("Invalid session token")
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := identity.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
