package matchposts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation. PENDING is the
// only non-terminal state; ACCEPTED and REJECTED never transition again.
type InvitationStatus string

const (
	InviteStatusPending  InvitationStatus = "PENDING"
	InviteStatusAccepted InvitationStatus = "ACCEPTED"
	InviteStatusRejected InvitationStatus = "REJECTED"
)

// Origin records who created the invitation.
type Origin string

const (
	OriginNominated   Origin = "NOMINATED"
	OriginSelfRequest Origin = "SELF_REQUEST"
)

var (
	// ErrPostNotFound is returned when a match post does not exist
	ErrPostNotFound = errors.New("match post not found")

	// ErrInvitationNotFound is returned when no invitation exists for the
	// (post, candidate) pair
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrNotAllowed is returned when the actor lacks rights for the action
	ErrNotAllowed = errors.New("actor is not allowed to perform this action")

	// ErrDuplicateInvitation is returned when the candidate already has an
	// invitation on the post, regardless of its status. A rejected candidate
	// cannot be re-nominated.
	ErrDuplicateInvitation = errors.New("candidate is already invited to this post")

	// ErrReservationNotConfirmed is returned when creating a post from a
	// reservation that is not in CONFIRMED state
	ErrReservationNotConfirmed = errors.New("reservation is not confirmed")

	// ErrPostExists is returned when the reservation already backs a post
	ErrPostExists = errors.New("reservation already has a match post")

	// ErrPostOrphaned is returned when the backing reservation was cancelled
	// and the roster is closed to further activity
	ErrPostOrphaned = errors.New("match post is orphaned, its reservation was cancelled")

	// ErrInvitationResolved is returned on an illegal transition out of a
	// terminal invitation state (accept after reject, reject after accept)
	ErrInvitationResolved = errors.New("invitation is already resolved")

	// ErrRosterSizeOutOfRange is returned when max participants falls
	// outside the configured bounds
	ErrRosterSizeOutOfRange = errors.New("max participants is out of range")
)

// CapacityError reports a full roster. AtAccept distinguishes losing the
// race for the last seat from nominating into a post that is already full;
// in the accept case the invitation stays PENDING.
type CapacityError struct {
	PostID          uuid.UUID
	MaxParticipants int
	AtAccept        bool
}

func (e *CapacityError) Error() string {
	if e.AtAccept {
		return fmt.Sprintf("post %s filled its last seat before this accept (%d participants)", e.PostID, e.MaxParticipants)
	}
	return fmt.Sprintf("post %s is full (%d participants)", e.PostID, e.MaxParticipants)
}

// MatchPost is a recruiting post bound 1:1 to a confirmed reservation.
// CurrentParticipants counts the owner's implicit seat plus accepted
// invitations; it is mutated only by invitation transitions.
type MatchPost struct {
	ID                  uuid.UUID  `json:"id"`
	ReservationID       uuid.UUID  `json:"reservation_id"`
	FieldID             uuid.UUID  `json:"field_id"`
	OwnerUserID         uuid.UUID  `json:"owner_user_id"`
	Content             string     `json:"content"`
	MaxParticipants     int        `json:"max_participants"`
	CurrentParticipants int        `json:"current_participants"`
	OrphanedAt          *time.Time `json:"orphaned_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Orphaned reports whether the backing reservation was cancelled.
func (p *MatchPost) Orphaned() bool {
	return p.OrphanedAt != nil
}

// Full reports whether every seat is taken.
func (p *MatchPost) Full() bool {
	return p.CurrentParticipants >= p.MaxParticipants
}

// Invitation is one candidate's seat claim on a post, keyed by
// (PostID, CandidateUserID).
type Invitation struct {
	PostID          uuid.UUID        `json:"post_id"`
	CandidateUserID uuid.UUID        `json:"candidate_user_id"`
	Status          InvitationStatus `json:"status"`
	Origin          Origin           `json:"origin"`
	InvitedAt       time.Time        `json:"invited_at"`
	RespondedAt     *time.Time       `json:"responded_at,omitempty"`
}

// Roster is the player list of a post, grouped by invitation status.
type Roster struct {
	Post     *MatchPost   `json:"post"`
	Accepted []Invitation `json:"accepted"`
	Pending  []Invitation `json:"pending"`
	Rejected []Invitation `json:"rejected"`
}
