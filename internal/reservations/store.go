package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists reservations and owns the per-field atomicity contract:
// within one field, Create calls are serialized against each other, so two
// racing creates for overlapping windows resolve to exactly one insert and
// one *ConflictError. Confirm and Cancel are likewise atomic check-then-set
// transitions.
type Store interface {
	// Create inserts the reservation unless an active (PENDING or
	// CONFIRMED) reservation on the same field overlaps [StartsAt, EndsAt).
	// On collision it returns a *ConflictError naming the committed window
	// and writes nothing.
	Create(ctx context.Context, res *Reservation) error

	// Get returns the reservation or ErrReservationNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// Confirm transitions PENDING to CONFIRMED. Confirming an already
	// CONFIRMED reservation is a no-op success returning the current row.
	// Confirming a CANCELLED reservation returns ErrAlreadyCancelled.
	Confirm(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// Cancel transitions PENDING or CONFIRMED to CANCELLED, freeing the
	// interval. Cancelling an already CANCELLED reservation is a no-op
	// success returning the current row.
	Cancel(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// ListByHolder returns the holder's reservations, newest first.
	ListByHolder(ctx context.Context, holderID uuid.UUID) ([]Reservation, error)

	// ListByField returns all reservations on a field, ordered by start.
	ListByField(ctx context.Context, fieldID uuid.UUID) ([]Reservation, error)

	// ListActiveInWindow returns the PENDING and CONFIRMED reservations on
	// a field that overlap [from, to), ordered by start. Used by the
	// availability projection; reads a committed snapshot and never blocks
	// writers.
	ListActiveInWindow(ctx context.Context, fieldID uuid.UUID, from, to time.Time) ([]Reservation, error)
}
