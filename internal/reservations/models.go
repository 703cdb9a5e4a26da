package reservations

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reservation.
// CANCELLED is terminal; only PENDING and CONFIRMED claim the interval.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid returns true for a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the reservation claims its interval.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

var (
	// ErrReservationNotFound is returned when a reservation does not exist
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNotAllowed is returned when the actor lacks rights for the transition
	ErrNotAllowed = errors.New("actor is not allowed to perform this action")

	// ErrAlreadyCancelled is returned when a terminal reservation is asked to
	// transition again (confirm after cancel)
	ErrAlreadyCancelled = errors.New("reservation is cancelled")
)

// ConflictError reports an interval collision on a field. It names the
// committed window the caller collided with so clients can offer
// alternatives.
type ConflictError struct {
	FieldID       uuid.UUID
	ReservationID uuid.UUID
	StartsAt      time.Time
	EndsAt        time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field %s is already reserved from %s to %s",
		e.FieldID,
		e.StartsAt.UTC().Format(time.RFC3339),
		e.EndsAt.UTC().Format(time.RFC3339),
	)
}

// Reservation is a claimed [StartsAt, EndsAt) interval on a field.
// Reservations are never deleted; cancelled rows remain for history.
type Reservation struct {
	ID           uuid.UUID `json:"id"`
	FieldID      uuid.UUID `json:"field_id"`
	HolderUserID uuid.UUID `json:"holder_user_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       Status    `json:"status"`
	DepositCents int       `json:"deposit_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
