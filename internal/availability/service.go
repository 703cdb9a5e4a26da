// Package availability projects a field's reservations onto a grid of
// fixed-width slots for display. It is read-only: every call recomputes the
// projection from a committed snapshot of the reservation store.
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/reservations"
)

// SlotStatus marks a projected slot as free or claimed.
type SlotStatus string

const (
	SlotFree    SlotStatus = "FREE"
	SlotClaimed SlotStatus = "CLAIMED"
)

// Slot is one fixed-width window within the daily operating hours.
type Slot struct {
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   time.Time  `json:"ends_at"`
	Status   SlotStatus `json:"status"`
}

// IntervalSource is the read side of the reservation store.
type IntervalSource interface {
	ListActiveInWindow(ctx context.Context, fieldID uuid.UUID, from, to time.Time) ([]reservations.Reservation, error)
}

// Projector computes slot grids from the reservation store.
type Projector struct {
	source      IntervalSource
	fields      reservations.FieldDirectory
	slotMinutes int
	openHour    int
	closeHour   int
}

// NewProjector creates a projector for the given slot width and daily
// operating window (hours in the day, [openHour, closeHour)).
func NewProjector(source IntervalSource, fields reservations.FieldDirectory, slotMinutes, openHour, closeHour int) *Projector {
	return &Projector{
		source:      source,
		fields:      fields,
		slotMinutes: slotMinutes,
		openHour:    openHour,
		closeHour:   closeHour,
	}
}

// Slots returns the ordered slot sequence for a field on the given day
// (interpreted in UTC). A slot is CLAIMED iff it overlaps any PENDING or
// CONFIRMED reservation; touching boundaries leave the slot free.
func (p *Projector) Slots(ctx context.Context, fieldID uuid.UUID, day time.Time) ([]Slot, error) {
	if _, err := p.fields.Owner(ctx, fieldID); err != nil {
		return nil, err
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	open := midnight.Add(time.Duration(p.openHour) * time.Hour)
	closing := midnight.Add(time.Duration(p.closeHour) * time.Hour)
	width := time.Duration(p.slotMinutes) * time.Minute

	claimed, err := p.source.ListActiveInWindow(ctx, fieldID, open, closing)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for start := open; !start.Add(width).After(closing); start = start.Add(width) {
		end := start.Add(width)

		status := SlotFree
		for _, res := range claimed {
			if reservations.Overlaps(start, end, res.StartsAt, res.EndsAt) {
				status = SlotClaimed
				break
			}
		}

		slots = append(slots, Slot{StartsAt: start, EndsAt: end, Status: status})
	}

	return slots, nil
}
