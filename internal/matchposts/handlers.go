package matchposts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/audit"
	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/notify"
	"github.com/pitchside/pitchside/internal/reservations"
	"github.com/rs/zerolog/log"
)

type CreatePostRequest struct {
	ReservationID   uuid.UUID `json:"reservation_id"`
	Content         string    `json:"content"`
	MaxParticipants int       `json:"max_participants"`
}

type NominateRequest struct {
	CandidateUserID uuid.UUID `json:"candidate_user_id"`
}

// HandleCreatePost handles POST /api/v1/posts
func HandleCreatePost(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.ReservationID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "Reservation ID is required")
			return
		}

		post, err := svc.CreateFromReservation(ctx, req.ReservationID, userID, req.Content, req.MaxParticipants)
		if err != nil {
			writeRosterError(w, r, err, "Failed to create match post")
			return
		}

		if err := auditor.LogPostCreated(ctx, post.FieldID, post.ID, userID, post.MaxParticipants); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.PostEvent(context.WithoutCancel(ctx), post.ID, post.ReservationID, post.MaxParticipants)

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"post": post,
		})
	}
}

// HandleGetPost handles GET /api/v1/posts/{post_id}
func HandleGetPost(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		post, err := svc.Get(ctx, postID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to get match post")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"post": post,
		})
	}
}

// HandleListPlayers handles GET /api/v1/posts/{post_id}/players
func HandleListPlayers(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		roster, err := svc.ListPlayers(ctx, postID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to list players")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"roster": roster,
		})
	}
}

// HandleNominate handles POST /api/v1/posts/{post_id}/invitations
func HandleNominate(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		var req NominateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.CandidateUserID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "Candidate user ID is required")
			return
		}

		inv, err := svc.Nominate(ctx, postID, req.CandidateUserID, userID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to nominate candidate")
			return
		}

		if err := auditor.LogInvite(ctx, audit.EventInviteNominated, postID, userID, inv.CandidateUserID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.InviteEvent(context.WithoutCancel(ctx), notify.EventInvitePending, postID, inv.CandidateUserID)

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invitation": inv,
		})
	}
}

// HandleSelfRequest handles POST /api/v1/posts/{post_id}/join
func HandleSelfRequest(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		inv, err := svc.SelfRequest(ctx, postID, userID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to request to join")
			return
		}

		if err := auditor.LogInvite(ctx, audit.EventInviteSelfRequested, postID, userID, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.InviteEvent(context.WithoutCancel(ctx), notify.EventInvitePending, postID, userID)

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invitation": inv,
		})
	}
}

// HandleAccept handles POST /api/v1/posts/{post_id}/invitations/accept
func HandleAccept(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		inv, post, err := svc.Accept(ctx, postID, userID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to accept invitation")
			return
		}

		if err := auditor.LogInvite(ctx, audit.EventInviteAccepted, postID, userID, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.InviteEvent(context.WithoutCancel(ctx), notify.EventInviteAccepted, postID, userID)

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitation": inv,
			"post":       post,
		})
	}
}

// HandleReject handles POST /api/v1/posts/{post_id}/invitations/reject
func HandleReject(svc *Service, auditor *audit.Writer, notifier *notify.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid post ID")
			return
		}

		inv, err := svc.Reject(ctx, postID, userID)
		if err != nil {
			writeRosterError(w, r, err, "Failed to reject invitation")
			return
		}

		if err := auditor.LogInvite(ctx, audit.EventInviteRejected, postID, userID, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		go notifier.InviteEvent(context.WithoutCancel(ctx), notify.EventInviteRejected, postID, userID)

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitation": inv,
		})
	}
}

// writeRosterError maps the shared post and invitation error kinds onto the
// response envelope.
func writeRosterError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var capacity *CapacityError
	switch {
	case errors.Is(err, ErrPostNotFound):
		apperrors.WriteNotFound(w, r, "Match post not found")
	case errors.Is(err, ErrInvitationNotFound):
		apperrors.WriteNotFound(w, r, "Invitation not found")
	case errors.Is(err, reservations.ErrReservationNotFound):
		apperrors.WriteNotFound(w, r, "Reservation not found")
	case errors.Is(err, ErrNotAllowed):
		apperrors.WriteForbidden(w, r, "You are not allowed to perform this action")
	case errors.As(err, &capacity):
		apperrors.WriteConflict(w, r, capacity.Error())
	case errors.Is(err, ErrDuplicateInvitation):
		apperrors.WriteConflict(w, r, "Candidate is already invited to this post")
	case errors.Is(err, ErrRosterSizeOutOfRange):
		apperrors.WriteBadRequest(w, r, err.Error())
	case errors.Is(err, ErrReservationNotConfirmed),
		errors.Is(err, ErrPostExists),
		errors.Is(err, ErrPostOrphaned),
		errors.Is(err, ErrInvitationResolved):
		apperrors.WriteUnprocessable(w, r, err.Error())
	default:
		log.Error().Err(err).Msg(internalMsg)
		apperrors.WriteInternalError(w, r, internalMsg)
	}
}
