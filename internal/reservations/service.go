package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/validation"
	"github.com/rs/zerolog/log"
)

// ErrInvalidDeposit is returned when the deposit amount is negative
var ErrInvalidDeposit = errors.New("deposit must not be negative")

// FieldDirectory resolves field ownership. Implemented by the field catalog.
type FieldDirectory interface {
	// Owner returns the owning user of a field, or an error satisfying
	// errors.Is(err, fields.ErrFieldNotFound) when the field is unknown.
	Owner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error)
}

// PostOrphaner marks the match post backed by a reservation as orphaned.
// Implemented by the match post service; cancelling a reservation does not
// delete its post, it only closes the roster to further activity.
type PostOrphaner interface {
	// OrphanByReservation returns the orphaned post's ID and true when a
	// post was bound to the reservation, uuid.Nil and false otherwise.
	OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error)
}

// Service implements the reservation lifecycle on top of a Store.
type Service struct {
	store    Store
	fields   FieldDirectory
	orphaner PostOrphaner
}

// NewService creates a reservation service. orphaner may be nil when no
// match post layer is wired (tests, tooling).
func NewService(store Store, fields FieldDirectory, orphaner PostOrphaner) *Service {
	return &Service{store: store, fields: fields, orphaner: orphaner}
}

// SetOrphaner wires the match post layer after construction. The two
// services reference each other, so one side is attached late.
func (s *Service) SetOrphaner(orphaner PostOrphaner) {
	s.orphaner = orphaner
}

// Create claims [startsAt, endsAt) on a field for the holder. A reservation
// created by the field owner is confirmed immediately; customer reservations
// start PENDING. On an interval collision the returned error is a
// *ConflictError naming the committed window; nothing is written.
func (s *Service) Create(ctx context.Context, fieldID, holderID uuid.UUID, startsAt, endsAt time.Time, depositCents int) (*Reservation, error) {
	if err := validation.ValidateInterval(startsAt, endsAt); err != nil {
		return nil, err
	}
	if depositCents < 0 {
		return nil, ErrInvalidDeposit
	}

	ownerID, err := s.fields.Owner(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if holderID == ownerID {
		status = StatusConfirmed
	}

	now := time.Now().UTC()
	res := &Reservation{
		ID:           uuid.New(),
		FieldID:      fieldID,
		HolderUserID: holderID,
		StartsAt:     startsAt.UTC(),
		EndsAt:       endsAt.UTC(),
		Status:       status,
		DepositCents: depositCents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, res); err != nil {
		return nil, err
	}

	return res, nil
}

// Get returns a reservation to its holder or the field owner.
func (s *Service) Get(ctx context.Context, id, actorID uuid.UUID) (*Reservation, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.HolderUserID != actorID {
		ownerID, err := s.fields.Owner(ctx, res.FieldID)
		if err != nil {
			return nil, err
		}
		if ownerID != actorID {
			return nil, ErrNotAllowed
		}
	}

	return res, nil
}

// Confirm transitions a PENDING reservation to CONFIRMED. Only the field
// owner may confirm. Re-confirming is a no-op success; confirming a
// cancelled reservation returns ErrAlreadyCancelled.
func (s *Service) Confirm(ctx context.Context, id, actorID uuid.UUID) (*Reservation, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ownerID, err := s.fields.Owner(ctx, res.FieldID)
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, ErrNotAllowed
	}

	return s.store.Confirm(ctx, id)
}

// Cancel transitions a reservation to CANCELLED and frees its interval.
// The holder or the field owner may cancel; cancelling twice is a no-op
// success. When the reservation backs a match post, the post is marked
// orphaned; the returned UUID is the orphaned post's ID (uuid.Nil if none).
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID) (*Reservation, uuid.UUID, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, uuid.Nil, err
	}

	if res.HolderUserID != actorID {
		ownerID, err := s.fields.Owner(ctx, res.FieldID)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if ownerID != actorID {
			return nil, uuid.Nil, ErrNotAllowed
		}
	}

	wasActive := res.Status.Active()

	out, err := s.store.Cancel(ctx, id)
	if err != nil {
		return nil, uuid.Nil, err
	}

	orphanedPostID := uuid.Nil
	if wasActive && s.orphaner != nil {
		postID, orphaned, err := s.orphaner.OrphanByReservation(ctx, id)
		if err != nil {
			// The cancel itself is committed; the post gate is closed on a
			// best-effort basis and the failure is surfaced in the logs.
			log.Error().Err(err).Str("reservation_id", id.String()).Msg("Failed to orphan match post")
		} else if orphaned {
			orphanedPostID = postID
		}
	}

	return out, orphanedPostID, nil
}

// ListMine returns the holder's reservations, newest first.
func (s *Service) ListMine(ctx context.Context, holderID uuid.UUID) ([]Reservation, error) {
	return s.store.ListByHolder(ctx, holderID)
}

// ListForField returns every reservation on a field for its owner.
func (s *Service) ListForField(ctx context.Context, fieldID, actorID uuid.UUID) ([]Reservation, error) {
	ownerID, err := s.fields.Owner(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, ErrNotAllowed
	}

	list, err := s.store.ListByField(ctx, fieldID)
	if err != nil {
		return nil, fmt.Errorf("failed to list field reservations: %w", err)
	}
	return list, nil
}
