package matchposts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store guarded by per-post mutexes. It backs
// unit tests and local development; the linearizability contract matches the
// Postgres store's row-lock discipline.
type MemoryStore struct {
	mu            sync.RWMutex
	posts         map[uuid.UUID]*MatchPost
	byReservation map[uuid.UUID]uuid.UUID
	invitations   map[uuid.UUID]map[uuid.UUID]*Invitation

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:         make(map[uuid.UUID]*MatchPost),
		byReservation: make(map[uuid.UUID]uuid.UUID),
		invitations:   make(map[uuid.UUID]map[uuid.UUID]*Invitation),
		locks:         make(map[uuid.UUID]*sync.Mutex),
	}
}

// postLock returns the mutex serializing writers for one post.
func (s *MemoryStore) postLock(postID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[postID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[postID] = lock
	}
	return lock
}

func (s *MemoryStore) CreatePost(ctx context.Context, post *MatchPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byReservation[post.ReservationID]; ok {
		return ErrPostExists
	}

	stored := *post
	s.posts[stored.ID] = &stored
	s.byReservation[stored.ReservationID] = stored.ID
	s.invitations[stored.ID] = make(map[uuid.UUID]*Invitation)
	return nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id uuid.UUID) (*MatchPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	out := *post
	return &out, nil
}

func (s *MemoryStore) AddInvitation(ctx context.Context, postID, candidateID uuid.UUID, origin Origin) (*Invitation, error) {
	lock := s.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, ErrPostNotFound
	}
	if post.Orphaned() {
		return nil, ErrPostOrphaned
	}
	if _, ok := s.invitations[postID][candidateID]; ok {
		return nil, ErrDuplicateInvitation
	}
	if post.Full() {
		return nil, &CapacityError{PostID: postID, MaxParticipants: post.MaxParticipants}
	}

	inv := &Invitation{
		PostID:          postID,
		CandidateUserID: candidateID,
		Status:          InviteStatusPending,
		Origin:          origin,
		InvitedAt:       time.Now().UTC(),
	}
	s.invitations[postID][candidateID] = inv
	out := *inv
	return &out, nil
}

func (s *MemoryStore) Accept(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, *MatchPost, error) {
	lock := s.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, nil, ErrPostNotFound
	}
	inv, ok := s.invitations[postID][candidateID]
	if !ok {
		return nil, nil, ErrInvitationNotFound
	}

	switch inv.Status {
	case InviteStatusAccepted:
		invOut, postOut := *inv, *post
		return &invOut, &postOut, nil
	case InviteStatusRejected:
		return nil, nil, ErrInvitationResolved
	}

	if post.Orphaned() {
		return nil, nil, ErrPostOrphaned
	}
	if post.Full() {
		// The invitation stays PENDING for the owner to re-adjudicate.
		return nil, nil, &CapacityError{PostID: postID, MaxParticipants: post.MaxParticipants, AtAccept: true}
	}

	now := time.Now().UTC()
	inv.Status = InviteStatusAccepted
	inv.RespondedAt = &now
	post.CurrentParticipants++
	post.UpdatedAt = now

	invOut, postOut := *inv, *post
	return &invOut, &postOut, nil
}

func (s *MemoryStore) Reject(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, error) {
	lock := s.postLock(postID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, ErrPostNotFound
	}
	inv, ok := s.invitations[postID][candidateID]
	if !ok {
		return nil, ErrInvitationNotFound
	}

	switch inv.Status {
	case InviteStatusRejected:
		out := *inv
		return &out, nil
	case InviteStatusAccepted:
		return nil, ErrInvitationResolved
	}

	now := time.Now().UTC()
	inv.Status = InviteStatusRejected
	inv.RespondedAt = &now
	out := *inv
	return &out, nil
}

func (s *MemoryStore) ListInvitations(ctx context.Context, postID uuid.UUID) ([]Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, ErrPostNotFound
	}

	var result []Invitation
	for _, inv := range s.invitations[postID] {
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].InvitedAt.Equal(result[j].InvitedAt) {
			return result[i].CandidateUserID.String() < result[j].CandidateUserID.String()
		}
		return result[i].InvitedAt.Before(result[j].InvitedAt)
	})
	return result, nil
}

func (s *MemoryStore) OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	postID, ok := s.byReservation[reservationID]
	if !ok {
		return uuid.Nil, false, nil
	}

	post := s.posts[postID]
	if !post.Orphaned() {
		now := time.Now().UTC()
		post.OrphanedAt = &now
		post.UpdatedAt = now
	}
	return postID, true, nil
}
