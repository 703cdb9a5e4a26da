// Package matchposts turns a confirmed reservation into a recruiting post
// and runs the capacity-gated invitation lifecycle on its roster.
package matchposts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/reservations"
)

// ReservationSource is the read side of the reservation store.
type ReservationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*reservations.Reservation, error)
}

// Service implements the roster post and invitation operations on top of a
// Store. It also satisfies reservations.PostOrphaner so a cancelled
// reservation closes its post's roster.
type Service struct {
	store        Store
	reservations ReservationSource
	minRoster    int
	maxRoster    int
}

// NewService creates a match post service with the configured roster bounds.
func NewService(store Store, reservations ReservationSource, minRoster, maxRoster int) *Service {
	return &Service{
		store:        store,
		reservations: reservations,
		minRoster:    minRoster,
		maxRoster:    maxRoster,
	}
}

// CreateFromReservation publishes a post recruiting players for a confirmed
// reservation. Only the reservation holder may post, a reservation backs at
// most one post, and maxParticipants must lie within the configured bounds.
// The owner occupies one seat from the start.
func (s *Service) CreateFromReservation(ctx context.Context, reservationID, ownerID uuid.UUID, content string, maxParticipants int) (*MatchPost, error) {
	if maxParticipants < s.minRoster || maxParticipants > s.maxRoster {
		return nil, ErrRosterSizeOutOfRange
	}

	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.HolderUserID != ownerID {
		return nil, ErrNotAllowed
	}
	if res.Status != reservations.StatusConfirmed {
		return nil, ErrReservationNotConfirmed
	}

	now := time.Now().UTC()
	post := &MatchPost{
		ID:                  uuid.New(),
		ReservationID:       reservationID,
		FieldID:             res.FieldID,
		OwnerUserID:         ownerID,
		Content:             content,
		MaxParticipants:     maxParticipants,
		CurrentParticipants: 1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// Get returns the post or ErrPostNotFound.
func (s *Service) Get(ctx context.Context, postID uuid.UUID) (*MatchPost, error) {
	return s.store.GetPost(ctx, postID)
}

// Nominate creates a PENDING invitation on behalf of the post owner. Full
// posts are rejected up front so no unacceptable invitation is created, and
// a candidate may hold at most one invitation per post regardless of status.
func (s *Service) Nominate(ctx context.Context, postID, candidateID, actorID uuid.UUID) (*Invitation, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.OwnerUserID != actorID {
		return nil, ErrNotAllowed
	}
	if candidateID == post.OwnerUserID {
		// The owner already holds the implicit first seat.
		return nil, ErrDuplicateInvitation
	}

	return s.store.AddInvitation(ctx, postID, candidateID, OriginNominated)
}

// SelfRequest creates a PENDING invitation initiated by the candidate.
// The capacity and duplicate rules match Nominate.
func (s *Service) SelfRequest(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if candidateID == post.OwnerUserID {
		return nil, ErrDuplicateInvitation
	}

	return s.store.AddInvitation(ctx, postID, candidateID, OriginSelfRequest)
}

// Accept resolves the caller's PENDING invitation to ACCEPTED, taking one
// seat. Losing a last-seat race returns a *CapacityError and leaves the
// invitation PENDING; re-accepting is a no-op success.
func (s *Service) Accept(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, *MatchPost, error) {
	return s.store.Accept(ctx, postID, candidateID)
}

// Reject resolves the caller's PENDING invitation to REJECTED. Re-rejecting
// is a no-op success; rejecting an accepted invitation is refused, a taken
// seat is never silently released.
func (s *Service) Reject(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, error) {
	return s.store.Reject(ctx, postID, candidateID)
}

// ListPlayers returns the post's roster grouped by invitation status.
func (s *Service) ListPlayers(ctx context.Context, postID uuid.UUID) (*Roster, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	invs, err := s.store.ListInvitations(ctx, postID)
	if err != nil {
		return nil, err
	}

	roster := &Roster{
		Post:     post,
		Accepted: []Invitation{},
		Pending:  []Invitation{},
		Rejected: []Invitation{},
	}
	for _, inv := range invs {
		switch inv.Status {
		case InviteStatusAccepted:
			roster.Accepted = append(roster.Accepted, inv)
		case InviteStatusRejected:
			roster.Rejected = append(roster.Rejected, inv)
		default:
			roster.Pending = append(roster.Pending, inv)
		}
	}

	return roster, nil
}

// OrphanByReservation closes the roster of the post backed by the given
// reservation. Implements reservations.PostOrphaner.
func (s *Service) OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error) {
	return s.store.OrphanByReservation(ctx, reservationID)
}
