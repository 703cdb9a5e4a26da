package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/audit"
	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/fields"
	"github.com/pitchside/pitchside/internal/notify"
	"github.com/pitchside/pitchside/internal/validation"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	FieldID      uuid.UUID `json:"field_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	DepositCents int       `json:"deposit_cents"`
}

// HandleCreate handles POST /api/v1/reservations
func HandleCreate(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.FieldID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "Field ID is required")
			return
		}

		res, err := svc.Create(ctx, req.FieldID, userID, req.StartsAt, req.EndsAt, req.DepositCents)
		if err != nil {
			var conflict *ConflictError
			switch {
			case errors.As(err, &conflict):
				apperrors.WriteConflict(w, r, conflict.Error())
			case errors.Is(err, validation.ErrInvalidInterval), errors.Is(err, ErrInvalidDeposit):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, fields.ErrFieldNotFound):
				apperrors.WriteNotFound(w, r, "Field not found")
			default:
				log.Error().Err(err).Msg("Failed to create reservation")
				apperrors.WriteInternalError(w, r, "Failed to create reservation")
			}
			return
		}

		if err := auditor.LogReservationCreated(ctx, res.FieldID, userID, res.ID, res.StartsAt, res.EndsAt); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.ReservationEvent(context.WithoutCancel(ctx), notify.EventReservationCreated, res.ID, res.FieldID, string(res.Status))

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"reservation": res,
		})
	}
}

// HandleGet handles GET /api/v1/reservations/{reservation_id}
func HandleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		id, err := uuid.Parse(chi.URLParam(r, "reservation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid reservation ID")
			return
		}

		res, err := svc.Get(ctx, id, userID)
		if err != nil {
			writeLifecycleError(w, r, err, "Failed to get reservation")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reservation": res,
		})
	}
}

// HandleConfirm handles POST /api/v1/reservations/{reservation_id}/confirm
func HandleConfirm(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		id, err := uuid.Parse(chi.URLParam(r, "reservation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid reservation ID")
			return
		}

		res, err := svc.Confirm(ctx, id, userID)
		if err != nil {
			writeLifecycleError(w, r, err, "Failed to confirm reservation")
			return
		}

		if err := auditor.LogReservationConfirmed(ctx, res.FieldID, userID, res.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.ReservationEvent(context.WithoutCancel(ctx), notify.EventReservationConfirmed, res.ID, res.FieldID, string(res.Status))

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reservation": res,
		})
	}
}

// HandleCancel handles POST /api/v1/reservations/{reservation_id}/cancel
func HandleCancel(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		id, err := uuid.Parse(chi.URLParam(r, "reservation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid reservation ID")
			return
		}

		res, orphanedPostID, err := svc.Cancel(ctx, id, userID)
		if err != nil {
			writeLifecycleError(w, r, err, "Failed to cancel reservation")
			return
		}

		if err := auditor.LogReservationCancelled(ctx, res.FieldID, userID, res.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		if orphanedPostID != uuid.Nil {
			if err := auditor.LogPostOrphaned(ctx, res.FieldID, orphanedPostID, userID); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
		}
		go notifier.ReservationEvent(context.WithoutCancel(ctx), notify.EventReservationCancelled, res.ID, res.FieldID, string(res.Status))

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reservation": res,
		})
	}
}

// HandleListMine handles GET /api/v1/reservations
func HandleListMine(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		list, err := svc.ListMine(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list reservations")
			apperrors.WriteInternalError(w, r, "Failed to list reservations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reservations": list,
		})
	}
}

// HandleListForField handles GET /api/v1/fields/{field_id}/reservations
func HandleListForField(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		fieldID, err := uuid.Parse(chi.URLParam(r, "field_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid field ID")
			return
		}

		list, err := svc.ListForField(ctx, fieldID, userID)
		if err != nil {
			writeLifecycleError(w, r, err, "Failed to list reservations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"reservations": list,
		})
	}
}

// writeLifecycleError maps the shared reservation error kinds onto the
// response envelope.
func writeLifecycleError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrReservationNotFound):
		apperrors.WriteNotFound(w, r, "Reservation not found")
	case errors.Is(err, fields.ErrFieldNotFound):
		apperrors.WriteNotFound(w, r, "Field not found")
	case errors.Is(err, ErrNotAllowed):
		apperrors.WriteForbidden(w, r, "You are not allowed to perform this action")
	case errors.Is(err, ErrAlreadyCancelled):
		apperrors.WriteUnprocessable(w, r, "Reservation is cancelled")
	default:
		log.Error().Err(err).Msg(internalMsg)
		apperrors.WriteInternalError(w, r, internalMsg)
	}
}
