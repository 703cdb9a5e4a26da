package matchposts

import (
	"context"

	"github.com/google/uuid"
)

// Store persists posts and invitations and owns the per-post atomicity
// contract: invitation writes on one post are serialized against each other,
// so the capacity check, the counter increment, and the status flip of an
// accept form one atomic unit. Two accepts racing for the last seat resolve
// to exactly one ACCEPTED row and one *CapacityError.
type Store interface {
	// CreatePost inserts the post. Returns ErrPostExists when the
	// reservation already backs a post.
	CreatePost(ctx context.Context, post *MatchPost) error

	// GetPost returns the post or ErrPostNotFound.
	GetPost(ctx context.Context, id uuid.UUID) (*MatchPost, error)

	// AddInvitation creates a PENDING invitation for the candidate. It
	// refuses orphaned posts (ErrPostOrphaned), full posts (*CapacityError
	// with AtAccept=false) and candidates already invited in any status
	// (ErrDuplicateInvitation).
	AddInvitation(ctx context.Context, postID, candidateID uuid.UUID, origin Origin) (*Invitation, error)

	// Accept flips PENDING to ACCEPTED and increments the participant
	// counter in the same atomic unit as the capacity re-check. Accepting an
	// ACCEPTED invitation is a no-op success without a second increment; a
	// REJECTED one returns ErrInvitationResolved. When the last seat is gone
	// the invitation stays PENDING and the error is a *CapacityError with
	// AtAccept=true. Orphaned posts return ErrPostOrphaned.
	Accept(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, *MatchPost, error)

	// Reject flips PENDING to REJECTED. Rejecting a REJECTED invitation is a
	// no-op success; an ACCEPTED one returns ErrInvitationResolved.
	Reject(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, error)

	// ListInvitations returns every invitation on the post, oldest first.
	ListInvitations(ctx context.Context, postID uuid.UUID) ([]Invitation, error)

	// OrphanByReservation marks the post bound to the reservation as
	// orphaned. It returns the post's ID and true when a post is bound
	// (already orphaned included), uuid.Nil and false otherwise.
	OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error)
}
