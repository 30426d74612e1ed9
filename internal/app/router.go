package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pilotup/pilotup/internal/announcements"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/auth"
	"github.com/pilotup/pilotup/internal/config"
	"github.com/pilotup/pilotup/internal/identity"
	"github.com/pilotup/pilotup/internal/invites"
	"github.com/pilotup/pilotup/internal/loops"
	"github.com/pilotup/pilotup/internal/waitlist"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.SessionMiddleware(cfg.JWTSecret))

	// Shared collaborators
	auditor := audit.NewWriter(pool)
	announcementStore := announcements.NewStore(pool)
	announcementFeed := announcements.NewFeed(rdb)
	provider := loops.NewClient(cfg.WaitlistURL, cfg.TransactionalURL, cfg.LoopsAPIKey, cfg.LoopsTimeoutMS)
	waitlistService := waitlist.NewService(provider, cfg.SiteID)

	inviteTTL := time.Duration(cfg.InviteTTLHours) * time.Hour
	resetTTL := time.Duration(cfg.ResetTTLMin) * time.Minute

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool, rdb))

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware(isProduction))

		// Signup is invite-gated; the token rides in the request body.
		r.Post("/signup", auth.HandleSignup(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))

		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
		r.With(LoginRateLimitMiddleware()).Post("/forgot-password", auth.HandleForgotPassword(pool, auditor, provider, cfg.BaseURL, resetTTL))
		r.Post("/reset-password", auth.HandleResetPassword(pool, auditor))

		r.With(identity.RequireAuth).Post("/logout", auth.HandleLogout())
		r.With(identity.RequireAuth).Get("/me", auth.HandleMe(pool))
	})

	// API routes - Invites (admin, except validation)
	r.Route("/api/v1/invites", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public: the signup page checks its token before rendering.
		r.With(PublicRateLimitMiddleware(cfg.RateLimitRPM)).Get("/validate", invites.HandleValidate(pool))

		r.Group(func(r chi.Router) {
			r.Use(CSRFMiddleware(isProduction))
			r.Use(identity.RequireAuth)

			r.Post("/", invites.HandleCreate(pool, auditor, cfg.BaseURL, inviteTTL))
			r.Get("/", invites.HandleList(pool, cfg.BaseURL))
			r.Delete("/{invite_id}", invites.HandleRevoke(pool, auditor))
		})
	})

	// API routes - Announcement banner
	r.Route("/api/v1/announcement", func(r chi.Router) {
		// Public visitor surface.
		r.With(ContentTypeJSON).Get("/", announcements.HandleGetBanner(announcementStore))
		r.Get("/stream", announcements.HandleStream(announcementStore, announcementFeed))

		// Admin editor surface.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(CSRFMiddleware(isProduction))
			r.Use(identity.RequireAuth)

			r.Get("/document", announcements.HandleGetDocument(announcementStore))
			r.Put("/document", announcements.HandleSaveDocument(announcementStore, announcementFeed, auditor))
		})
	})

	// API routes - Waitlist (public, rate limited)
	r.Route("/api/v1/waitlist", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.With(PublicRateLimitMiddleware(cfg.RateLimitRPM)).Post("/", waitlist.HandleSubmit(waitlistService, auditor))
	})

	// API routes - Audit log (admin)
	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(identity.RequireAuth)

		r.Get("/", handleAuditList(pool))
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database and Redis
// connectivity. Returns 200 OK if ready to accept traffic, 503 if not.
func handleReadyz(pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			WriteServiceUnavailable(w, r, "Redis connection failed")
			return
		}

		WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
			"redis":  "ok",
		})
	}
}
