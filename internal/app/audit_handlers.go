package app

import (
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/audit"
)

// handleAuditList handles GET /api/v1/audit?limit=N
func handleAuditList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				WriteBadRequest(w, r, "limit must be an integer")
				return
			}
			limit = parsed
		}

		reader := audit.NewReader(pool)
		items, err := reader.ListRecent(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit events")
			WriteInternalError(w, r, "Failed to list audit events")
			return
		}

		WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events": items,
		})
	}
}
