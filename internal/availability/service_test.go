package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/fields"
	"github.com/pitchside/pitchside/internal/reservations"
	"github.com/stretchr/testify/require"
)

type fixedDirectory struct {
	fieldID uuid.UUID
	ownerID uuid.UUID
}

func (d *fixedDirectory) Owner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	if fieldID != d.fieldID {
		return uuid.Nil, fields.ErrFieldNotFound
	}
	return d.ownerID, nil
}

func at(hour, min int) time.Time {
	return time.Date(2026, 5, 1, hour, min, 0, 0, time.UTC)
}

func newFixture(t *testing.T) (*Projector, *reservations.MemoryStore, uuid.UUID) {
	t.Helper()
	fieldID := uuid.New()
	store := reservations.NewMemoryStore()
	dir := &fixedDirectory{fieldID: fieldID, ownerID: uuid.New()}
	return NewProjector(store, dir, 30, 8, 23), store, fieldID
}

func reserve(t *testing.T, store *reservations.MemoryStore, fieldID uuid.UUID, status reservations.Status, start, end time.Time) {
	t.Helper()
	now := time.Now().UTC()
	err := store.Create(context.Background(), &reservations.Reservation{
		ID:           uuid.New(),
		FieldID:      fieldID,
		HolderUserID: uuid.New(),
		StartsAt:     start,
		EndsAt:       end,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
}

func TestSlots_EmptyDayIsAllFree(t *testing.T) {
	projector, _, fieldID := newFixture(t)

	slots, err := projector.Slots(context.Background(), fieldID, at(0, 0))
	require.NoError(t, err)

	// 08:00..23:00 at 30 minutes = 30 slots.
	require.Len(t, slots, 30)
	require.Equal(t, at(8, 0), slots[0].StartsAt)
	require.Equal(t, at(23, 0), slots[len(slots)-1].EndsAt)
	for _, slot := range slots {
		require.Equal(t, SlotFree, slot.Status)
	}
}

func TestSlots_ClaimedByActiveReservations(t *testing.T) {
	projector, store, fieldID := newFixture(t)

	reserve(t, store, fieldID, reservations.StatusConfirmed, at(10, 0), at(11, 0))
	reserve(t, store, fieldID, reservations.StatusPending, at(14, 15), at(14, 45))

	slots, err := projector.Slots(context.Background(), fieldID, at(0, 0))
	require.NoError(t, err)

	byStart := make(map[time.Time]SlotStatus)
	for _, slot := range slots {
		byStart[slot.StartsAt] = slot.Status
	}

	require.Equal(t, SlotClaimed, byStart[at(10, 0)])
	require.Equal(t, SlotClaimed, byStart[at(10, 30)])
	// Touching boundary: the 11:00 slot stays free.
	require.Equal(t, SlotFree, byStart[at(11, 0)])
	require.Equal(t, SlotFree, byStart[at(9, 30)])

	// A pending reservation straddling two slots claims both.
	require.Equal(t, SlotClaimed, byStart[at(14, 0)])
	require.Equal(t, SlotClaimed, byStart[at(14, 30)])
	require.Equal(t, SlotFree, byStart[at(15, 0)])
}

func TestSlots_CancelledReservationsAreFree(t *testing.T) {
	projector, store, fieldID := newFixture(t)

	reserve(t, store, fieldID, reservations.StatusConfirmed, at(10, 0), at(11, 0))
	res, err := store.ListActiveInWindow(context.Background(), fieldID, at(0, 0), at(23, 59))
	require.NoError(t, err)
	_, err = store.Cancel(context.Background(), res[0].ID)
	require.NoError(t, err)

	slots, err := projector.Slots(context.Background(), fieldID, at(0, 0))
	require.NoError(t, err)
	for _, slot := range slots {
		require.Equal(t, SlotFree, slot.Status)
	}
}

func TestSlots_UnknownField(t *testing.T) {
	projector, _, _ := newFixture(t)

	_, err := projector.Slots(context.Background(), uuid.New(), at(0, 0))
	require.ErrorIs(t, err, fields.ErrFieldNotFound)
}

func TestSlots_DeterministicForSnapshot(t *testing.T) {
	projector, store, fieldID := newFixture(t)
	reserve(t, store, fieldID, reservations.StatusConfirmed, at(9, 0), at(10, 30))

	first, err := projector.Slots(context.Background(), fieldID, at(0, 0))
	require.NoError(t, err)
	second, err := projector.Slots(context.Background(), fieldID, at(0, 0))
	require.NoError(t, err)
	require.Equal(t, first, second)
}
