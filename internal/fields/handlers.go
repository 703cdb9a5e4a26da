package fields

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/audit"
	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/validation"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Sport string `json:"sport"`
}

// HandleCreate handles POST /api/v1/fields
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			apperrors.WriteBadRequest(w, r, "Name is required")
			return
		}
		if len(req.Name) > 120 {
			apperrors.WriteBadRequest(w, r, "Name is too long")
			return
		}

		req.Sport = strings.TrimSpace(req.Sport)
		if req.Sport == "" {
			apperrors.WriteBadRequest(w, r, "Sport is required")
			return
		}
		if len(req.Sport) > 40 {
			apperrors.WriteBadRequest(w, r, "Sport is too long")
			return
		}

		service := NewService(pool)
		field, err := service.Create(ctx, userID, req.Name, req.Slug, req.Sport)
		if err != nil {
			if errors.Is(err, ErrSlugConflict) {
				apperrors.WriteConflict(w, r, "Field slug already exists")
				return
			}
			if errors.Is(err, validation.ErrInvalidSlug) ||
				errors.Is(err, validation.ErrSlugTooShort) ||
				errors.Is(err, validation.ErrSlugTooLong) {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to create field")
			apperrors.WriteInternalError(w, r, "Failed to create field")
			return
		}

		if err := auditor.LogFieldCreated(ctx, field.ID, userID, field.Slug); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"field": field,
		})
	}
}

// HandleList handles GET /api/v1/fields
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		service := NewService(pool)
		result, err := service.List(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list fields")
			apperrors.WriteInternalError(w, r, "Failed to list fields")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"fields": result,
		})
	}
}

// HandleGet handles GET /api/v1/fields/{field_id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fieldID, err := uuid.Parse(chi.URLParam(r, "field_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid field ID")
			return
		}

		service := NewService(pool)
		field, err := service.GetByID(ctx, fieldID)
		if err != nil {
			if errors.Is(err, ErrFieldNotFound) {
				apperrors.WriteNotFound(w, r, "Field not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get field")
			apperrors.WriteInternalError(w, r, "Failed to get field")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"field": field,
		})
	}
}

// HandleListAudit handles GET /api/v1/fields/{field_id}/audit (owner only)
func HandleListAudit(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		fieldID, err := uuid.Parse(chi.URLParam(r, "field_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid field ID")
			return
		}

		service := NewService(pool)
		ownerID, err := service.Owner(ctx, fieldID)
		if err != nil {
			if errors.Is(err, ErrFieldNotFound) {
				apperrors.WriteNotFound(w, r, "Field not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get field owner")
			apperrors.WriteInternalError(w, r, "Failed to list audit events")
			return
		}
		if ownerID != userID {
			apperrors.WriteForbidden(w, r, "Only the field owner may view the audit log")
			return
		}

		events, err := audit.NewReader(pool).ListByField(ctx, fieldID, 100)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit events")
			apperrors.WriteInternalError(w, r, "Failed to list audit events")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}
