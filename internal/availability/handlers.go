package availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/fields"
	"github.com/rs/zerolog/log"
)

// HandleGetAvailability handles GET /api/v1/fields/{field_id}/availability?date=YYYY-MM-DD
func HandleGetAvailability(projector *Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fieldID, err := uuid.Parse(chi.URLParam(r, "field_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid field ID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			apperrors.WriteBadRequest(w, r, "date query parameter is required (YYYY-MM-DD)")
			return
		}
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid date, expected YYYY-MM-DD")
			return
		}

		slots, err := projector.Slots(ctx, fieldID, day)
		if err != nil {
			if errors.Is(err, fields.ErrFieldNotFound) {
				apperrors.WriteNotFound(w, r, "Field not found")
				return
			}
			log.Error().Err(err).Msg("Failed to project availability")
			apperrors.WriteInternalError(w, r, "Failed to project availability")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"date":  dateStr,
			"slots": slots,
		})
	}
}
