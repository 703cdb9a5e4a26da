package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup           = "user.signup"
	EventLoginFailed          = "auth.login_failed"
	EventFieldCreated         = "field.created"
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventPostCreated          = "post.created"
	EventPostOrphaned         = "post.orphaned"
	EventInviteNominated      = "invite.nominated"
	EventInviteSelfRequested  = "invite.self_requested"
	EventInviteAccepted       = "invite.accepted"
	EventInviteRejected       = "invite.rejected"
)

// Event represents an audit log entry.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	FieldID     uuid.NullUUID          `json:"field_id"`
	PostID      uuid.NullUUID          `json:"post_id"`
	ActorUserID uuid.NullUUID          `json:"actor_user_id"`
	Action      string                 `json:"action"`
	Meta        map[string]interface{} `json:"meta"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	FieldID     *uuid.UUID
	PostID      *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO audit_log (field_id, post_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := w.pool.Exec(ctx, query,
		toNullUUID(params.FieldID),
		toNullUUID(params.PostID),
		toNullUUID(params.ActorUserID),
		params.Action,
		metaJSON,
	)
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Info().
		Str("action", params.Action).
		Interface("field_id", params.FieldID).
		Interface("post_id", params.PostID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogFieldCreated(ctx context.Context, fieldID, ownerID uuid.UUID, slug string) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		ActorUserID: &ownerID,
		Action:      EventFieldCreated,
		Meta: map[string]interface{}{
			"slug": slug,
		},
	})
}

func (w *Writer) LogReservationCreated(ctx context.Context, fieldID, holderID, reservationID uuid.UUID, startsAt, endsAt time.Time) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		ActorUserID: &holderID,
		Action:      EventReservationCreated,
		Meta: map[string]interface{}{
			"reservation_id": reservationID.String(),
			"starts_at":      startsAt.Format(time.RFC3339),
			"ends_at":        endsAt.Format(time.RFC3339),
		},
	})
}

func (w *Writer) LogReservationConfirmed(ctx context.Context, fieldID, actorID, reservationID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		ActorUserID: &actorID,
		Action:      EventReservationConfirmed,
		Meta: map[string]interface{}{
			"reservation_id": reservationID.String(),
		},
	})
}

func (w *Writer) LogReservationCancelled(ctx context.Context, fieldID, actorID, reservationID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		ActorUserID: &actorID,
		Action:      EventReservationCancelled,
		Meta: map[string]interface{}{
			"reservation_id": reservationID.String(),
		},
	})
}

func (w *Writer) LogPostCreated(ctx context.Context, fieldID, postID, ownerID uuid.UUID, maxParticipants int) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		PostID:      &postID,
		ActorUserID: &ownerID,
		Action:      EventPostCreated,
		Meta: map[string]interface{}{
			"max_participants": maxParticipants,
		},
	})
}

func (w *Writer) LogPostOrphaned(ctx context.Context, fieldID, postID, actorID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		FieldID:     &fieldID,
		PostID:      &postID,
		ActorUserID: &actorID,
		Action:      EventPostOrphaned,
	})
}

func (w *Writer) LogInvite(ctx context.Context, action string, postID, actorID, candidateID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		PostID:      &postID,
		ActorUserID: &actorID,
		Action:      action,
		Meta: map[string]interface{}{
			"candidate_user_id": candidateID.String(),
		},
	})
}
