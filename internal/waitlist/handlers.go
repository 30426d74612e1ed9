package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/apperrors"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/validation"
)

type SubmitRequest struct {
	Email     string `json:"email"`
	SourceTag string `json:"source_tag"`
}

// HandleSubmit handles POST /api/v1/waitlist
func HandleSubmit(service *Service, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		source, err := service.Submit(ctx, req.Email, req.SourceTag)
		if err != nil {
			if errors.Is(err, validation.ErrInvalidEmail) || errors.Is(err, validation.ErrSourceTagTooLong) {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			log.Warn().Err(err).Msg("Waitlist submission failed")
			apperrors.WriteError(w, r, http.StatusBadGateway, "waitlist_failed", err.Error())
			return
		}

		if err := auditor.LogWaitlistForwarded(ctx, req.Email, source); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"joined": true,
		})
	}
}
