package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pitchside/pitchside/internal/matchposts"
	"github.com/pitchside/pitchside/internal/reservations"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, password_hash, display_name)
		VALUES ($1, $2, 'x', 'Test User')
	`, id, fmt.Sprintf("user-%s@example.com", id))
	require.NoError(t, err)
	return id
}

func seedField(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO fields (id, name, slug, sport, owner_user_id)
		VALUES ($1, 'Court One', $2, 'futsal', $3)
	`, id, "court-"+id.String()[:8], ownerID)
	require.NoError(t, err)
	return id
}

func seedReservation(t *testing.T, store *reservations.PostgresStore, fieldID, holderID uuid.UUID, status reservations.Status, start, end time.Time) *reservations.Reservation {
	t.Helper()
	now := time.Now().UTC()
	res := &reservations.Reservation{
		ID:           uuid.New(),
		FieldID:      fieldID,
		HolderUserID: holderID,
		StartsAt:     start,
		EndsAt:       end,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Create(context.Background(), res))
	return res
}

func window(hour int) (time.Time, time.Time) {
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(hour) * time.Hour), day.Add(time.Duration(hour+1) * time.Hour)
}

func TestPostgresReservations_ConcurrentCreateExactlyOneWins(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	ownerID := seedUser(t, pool)
	fieldID := seedField(t, pool, ownerID)
	store := reservations.NewPostgresStore(pool)

	start, end := window(10)

	const racers = 12
	holders := make([]uuid.UUID, racers)
	for i := range holders {
		holders[i] = seedUser(t, pool)
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now().UTC()
			errs[i] = store.Create(ctx, &reservations.Reservation{
				ID:           uuid.New(),
				FieldID:      fieldID,
				HolderUserID: holders[i],
				StartsAt:     start,
				EndsAt:       end,
				Status:       reservations.StatusPending,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var conflict *reservations.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, start, conflict.StartsAt.UTC())
		require.Equal(t, end, conflict.EndsAt.UTC())
	}
	require.Equal(t, 1, winners)

	active, err := store.ListActiveInWindow(ctx, fieldID, start, end)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestPostgresReservations_LifecycleAndBoundaries(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	ownerID := seedUser(t, pool)
	holderID := seedUser(t, pool)
	fieldID := seedField(t, pool, ownerID)
	store := reservations.NewPostgresStore(pool)

	start, end := window(10)
	res := seedReservation(t, store, fieldID, holderID, reservations.StatusPending, start, end)

	// Touching boundary does not collide.
	nextStart, nextEnd := window(11)
	seedReservation(t, store, fieldID, seedUser(t, pool), reservations.StatusPending, nextStart, nextEnd)

	confirmed, err := store.Confirm(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusConfirmed, confirmed.Status)

	// Idempotent re-confirm.
	confirmed, err = store.Confirm(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusConfirmed, confirmed.Status)

	cancelled, err := store.Cancel(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusCancelled, cancelled.Status)

	cancelled, err = store.Cancel(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusCancelled, cancelled.Status)

	_, err = store.Confirm(ctx, res.ID)
	require.ErrorIs(t, err, reservations.ErrAlreadyCancelled)

	// The cancelled interval is free again.
	seedReservation(t, store, fieldID, holderID, reservations.StatusPending, start, end)
}

func TestPostgresMatchposts_LastSeatRace(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	ownerID := seedUser(t, pool)
	fieldID := seedField(t, pool, ownerID)
	resStore := reservations.NewPostgresStore(pool)
	store := matchposts.NewPostgresStore(pool)

	start, end := window(18)
	res := seedReservation(t, resStore, fieldID, ownerID, reservations.StatusConfirmed, start, end)

	now := time.Now().UTC()
	post := &matchposts.MatchPost{
		ID:                  uuid.New(),
		ReservationID:       res.ID,
		FieldID:             fieldID,
		OwnerUserID:         ownerID,
		Content:             "one seat left soon",
		MaxParticipants:     2,
		CurrentParticipants: 1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, store.CreatePost(ctx, post))

	// Second post on the same reservation violates the 1:1 binding.
	dup := *post
	dup.ID = uuid.New()
	require.ErrorIs(t, store.CreatePost(ctx, &dup), matchposts.ErrPostExists)

	candidateP := seedUser(t, pool)
	candidateQ := seedUser(t, pool)
	for _, candidate := range []uuid.UUID{candidateP, candidateQ} {
		_, err := store.AddInvitation(ctx, post.ID, candidate, matchposts.OriginNominated)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(map[uuid.UUID]error, 2)
	var mu sync.Mutex
	for _, candidate := range []uuid.UUID{candidateP, candidateQ} {
		wg.Add(1)
		go func(candidate uuid.UUID) {
			defer wg.Done()
			_, _, err := store.Accept(ctx, post.ID, candidate)
			mu.Lock()
			errs[candidate] = err
			mu.Unlock()
		}(candidate)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var capacity *matchposts.CapacityError
		require.ErrorAs(t, err, &capacity)
		require.True(t, capacity.AtAccept)
	}
	require.Equal(t, 1, winners)

	final, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, 2, final.CurrentParticipants)

	invs, err := store.ListInvitations(ctx, post.ID)
	require.NoError(t, err)
	accepted, pending := 0, 0
	for _, inv := range invs {
		switch inv.Status {
		case matchposts.InviteStatusAccepted:
			accepted++
		case matchposts.InviteStatusPending:
			pending++
		}
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, pending)
}

func TestPostgresMatchposts_OrphanClosesRoster(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	ownerID := seedUser(t, pool)
	fieldID := seedField(t, pool, ownerID)
	resStore := reservations.NewPostgresStore(pool)
	store := matchposts.NewPostgresStore(pool)

	start, end := window(9)
	res := seedReservation(t, resStore, fieldID, ownerID, reservations.StatusConfirmed, start, end)

	now := time.Now().UTC()
	post := &matchposts.MatchPost{
		ID:                  uuid.New(),
		ReservationID:       res.ID,
		FieldID:             fieldID,
		OwnerUserID:         ownerID,
		MaxParticipants:     5,
		CurrentParticipants: 1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, store.CreatePost(ctx, post))

	pendingCandidate := seedUser(t, pool)
	_, err := store.AddInvitation(ctx, post.ID, pendingCandidate, matchposts.OriginSelfRequest)
	require.NoError(t, err)

	postID, orphaned, err := store.OrphanByReservation(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, orphaned)
	require.Equal(t, post.ID, postID)

	// Repeat orphan reports the same bound post.
	postID, orphaned, err = store.OrphanByReservation(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, orphaned)
	require.Equal(t, post.ID, postID)

	_, orphaned, err = store.OrphanByReservation(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, orphaned)

	_, err = store.AddInvitation(ctx, post.ID, seedUser(t, pool), matchposts.OriginNominated)
	require.ErrorIs(t, err, matchposts.ErrPostOrphaned)
	_, _, err = store.Accept(ctx, post.ID, pendingCandidate)
	require.ErrorIs(t, err, matchposts.ErrPostOrphaned)

	// Declining still works on a dead post.
	inv, err := store.Reject(ctx, post.ID, pendingCandidate)
	require.NoError(t, err)
	require.Equal(t, matchposts.InviteStatusRejected, inv.Status)
}
