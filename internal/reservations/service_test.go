package reservations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/fields"
	"github.com/pitchside/pitchside/internal/validation"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	owners map[uuid.UUID]uuid.UUID
}

func (d *fakeDirectory) Owner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	owner, ok := d.owners[fieldID]
	if !ok {
		return uuid.Nil, fields.ErrFieldNotFound
	}
	return owner, nil
}

type fakeOrphaner struct {
	mu     sync.Mutex
	postID uuid.UUID
	calls  []uuid.UUID
}

func (o *fakeOrphaner) OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, reservationID)
	if o.postID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	return o.postID, true, nil
}

type serviceFixture struct {
	svc      *Service
	store    *MemoryStore
	orphaner *fakeOrphaner
	fieldID  uuid.UUID
	ownerID  uuid.UUID
	holderID uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	fieldID := uuid.New()
	ownerID := uuid.New()
	store := NewMemoryStore()
	orphaner := &fakeOrphaner{}
	svc := NewService(store, &fakeDirectory{owners: map[uuid.UUID]uuid.UUID{fieldID: ownerID}}, orphaner)
	return &serviceFixture{
		svc:      svc,
		store:    store,
		orphaner: orphaner,
		fieldID:  fieldID,
		ownerID:  ownerID,
		holderID: uuid.New(),
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(11, 0), at(10, 0), 0)
	require.ErrorIs(t, err, validation.ErrInvalidInterval)

	_, err = f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(10, 0), 0)
	require.ErrorIs(t, err, validation.ErrInvalidInterval)

	_, err = f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), -100)
	require.ErrorIs(t, err, ErrInvalidDeposit)

	_, err = f.svc.Create(ctx, uuid.New(), f.holderID, at(10, 0), at(11, 0), 0)
	require.ErrorIs(t, err, fields.ErrFieldNotFound)
}

func TestCreate_ConflictScenario(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// A = [10:00, 11:00) succeeds as PENDING.
	resA, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 500)
	require.NoError(t, err)
	require.Equal(t, StatusPending, resA.Status)

	// B = [10:30, 11:30) collides and names A's window.
	_, err = f.svc.Create(ctx, f.fieldID, uuid.New(), at(10, 30), at(11, 30), 0)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, resA.ID, conflict.ReservationID)
	require.Equal(t, at(10, 0), conflict.StartsAt)
	require.Equal(t, at(11, 0), conflict.EndsAt)

	// C = [11:00, 12:00) touches A's boundary and succeeds.
	resC, err := f.svc.Create(ctx, f.fieldID, uuid.New(), at(11, 0), at(12, 0), 0)
	require.NoError(t, err)
	require.Equal(t, StatusPending, resC.Status)
}

func TestCreate_OwnerConfirmsImmediately(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.fieldID, f.ownerID, at(9, 0), at(10, 0), 0)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, res.Status)
}

func TestConfirm_Lifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	// The holder is not the field owner and may not confirm.
	_, err = f.svc.Confirm(ctx, res.ID, f.holderID)
	require.ErrorIs(t, err, ErrNotAllowed)

	confirmed, err := f.svc.Confirm(ctx, res.ID, f.ownerID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)

	// Re-confirming is a no-op success.
	again, err := f.svc.Confirm(ctx, res.ID, f.ownerID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, again.Status)

	// Confirm after cancel is an invalid transition.
	_, _, err = f.svc.Cancel(ctx, res.ID, f.holderID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, res.ID, f.ownerID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)

	_, err = f.svc.Confirm(ctx, uuid.New(), f.ownerID)
	require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestCancel_IdempotentAndFreesInterval(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	// A stranger may not cancel.
	_, _, err = f.svc.Cancel(ctx, res.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotAllowed)

	cancelled, _, err := f.svc.Cancel(ctx, res.ID, f.holderID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	// Cancelling again yields the same terminal state, no error.
	again, _, err := f.svc.Cancel(ctx, res.ID, f.holderID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, again.Status)

	// The interval is free again.
	_, err = f.svc.Create(ctx, f.fieldID, uuid.New(), at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	// The orphaner ran once, on the first cancel only.
	require.Len(t, f.orphaner.calls, 1)
}

func TestCancel_ByFieldOwner(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	cancelled, _, err := f.svc.Cancel(ctx, res.ID, f.ownerID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancel_ReportsOrphanedPost(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.orphaner.postID = uuid.New()

	res, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	_, orphanedPostID, err := f.svc.Cancel(ctx, res.ID, f.holderID)
	require.NoError(t, err)
	require.Equal(t, f.orphaner.postID, orphanedPostID)
}

func TestConcurrentCreate_ExactlyOneWins(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	const racers = 32
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.fieldID, uuid.New(), at(10, 0), at(11, 0), 0)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
	}
	require.Equal(t, 1, winners)
}

// TestConcurrentCreate_NoOverlapInvariant hammers one field with random
// windows and verifies that no two surviving active reservations overlap.
func TestConcurrentCreate_NoOverlapInvariant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	const attempts = 64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(8, 0).Add(time.Duration(i%12) * 15 * time.Minute)
			end := start.Add(time.Duration(30+(i%3)*30) * time.Minute)
			_, _ = f.svc.Create(ctx, f.fieldID, uuid.New(), start, end, 0)
		}(i)
	}
	wg.Wait()

	active, err := f.store.ListActiveInWindow(ctx, f.fieldID, at(0, 0), at(23, 59))
	require.NoError(t, err)
	require.NotEmpty(t, active)

	for i := range active {
		for j := i + 1; j < len(active); j++ {
			require.False(t,
				Overlaps(active[i].StartsAt, active[i].EndsAt, active[j].StartsAt, active[j].EndsAt),
				"reservations %s and %s overlap", active[i].ID, active[j].ID)
		}
	}
}

func TestListForField_OwnerOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.fieldID, f.holderID, at(10, 0), at(11, 0), 0)
	require.NoError(t, err)

	_, err = f.svc.ListForField(ctx, f.fieldID, f.holderID)
	require.ErrorIs(t, err, ErrNotAllowed)

	list, err := f.svc.ListForField(ctx, f.fieldID, f.ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
