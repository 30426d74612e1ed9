package announcements

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pilotup/pilotup/internal/apperrors"
	"github.com/pilotup/pilotup/internal/audit"
	"github.com/pilotup/pilotup/internal/identity"
)

// HandleGetBanner handles GET /api/v1/announcement
// Public: returns the rendered banner. A missing or load-failed document
// renders as a hidden banner, never as a page-breaking error.
func HandleGetBanner(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := store.Load(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to load announcement; serving hidden banner")
			apperrors.WriteSuccess(w, r, http.StatusOK, Render(nil))
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, Render(doc))
	}
}

// HandleGetDocument handles GET /api/v1/announcement/document
// Admin: returns the raw document for the editor, or null when none exists.
func HandleGetDocument(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := store.Load(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to load announcement")
			apperrors.WriteInternalError(w, r, "Failed to load announcement")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"document": doc,
		})
	}
}

// HandleSaveDocument handles PUT /api/v1/announcement/document
// Admin: upserts the singleton document and broadcasts it to open visitor
// sessions. The admin's draft lives client-side until this call.
func HandleSaveDocument(store *Store, feed *Feed, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := identity.GetUserID(ctx)

		var doc Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := doc.Validate(); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		if err := store.Save(ctx, &doc, userID); err != nil {
			log.Error().Err(err).Msg("Failed to save announcement")
			apperrors.WriteInternalError(w, r, "Failed to save announcement")
			return
		}

		// The save already succeeded; a publish failure only delays open
		// sessions until their next reload.
		if err := feed.Publish(ctx, &doc); err != nil {
			log.Error().Err(err).Msg("Failed to publish announcement update")
		}

		if err := auditor.LogAnnouncementSaved(ctx, userID, doc.IsVisible, len(doc.Content.Blocks)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"saved":  true,
			"banner": Render(&doc),
		})
	}
}

// HandleStream handles GET /api/v1/announcement/stream
// Public: server-sent events. The current banner is sent on connect, then
// every save is pushed as it happens. The subscription is torn down when
// the client disconnects.
func HandleStream(store *Store, feed *Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			apperrors.WriteInternalError(w, r, "Streaming unsupported")
			return
		}

		ctx := r.Context()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		updates := make(chan *Document, 4)
		unsubscribe, err := feed.OnChange(ctx, func(doc *Document) {
			select {
			case updates <- doc:
			default:
				// Slow consumer; it will catch up on the next update.
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to announcement updates")
			apperrors.WriteServiceUnavailable(w, r, "Live updates unavailable")
			return
		}
		defer unsubscribe()

		doc, err := store.Load(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load announcement for stream")
			doc = nil
		}
		if err := writeBannerEvent(w, doc); err != nil {
			return
		}
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case doc := <-updates:
				if err := writeBannerEvent(w, doc); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeBannerEvent(w http.ResponseWriter, doc *Document) error {
	payload, err := json.Marshal(Render(doc))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: banner\ndata: %s\n\n", payload)
	return err
}
