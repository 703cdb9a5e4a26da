package reservations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store guarded by per-field mutexes. It backs
// unit tests and local development; the linearizability contract matches the
// Postgres store's advisory-lock discipline.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Reservation
	byField map[uuid.UUID][]uuid.UUID

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Reservation),
		byField: make(map[uuid.UUID][]uuid.UUID),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// fieldLock returns the mutex serializing writers for one field.
func (s *MemoryStore) fieldLock(fieldID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[fieldID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[fieldID] = lock
	}
	return lock
}

func (s *MemoryStore) Create(ctx context.Context, res *Reservation) error {
	lock := s.fieldLock(res.FieldID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	var conflict *Reservation
	for _, id := range s.byField[res.FieldID] {
		other := s.records[id]
		if !other.Status.Active() {
			continue
		}
		if Overlaps(res.StartsAt, res.EndsAt, other.StartsAt, other.EndsAt) {
			conflict = other
			break
		}
	}
	s.mu.RUnlock()

	if conflict != nil {
		return &ConflictError{
			FieldID:       conflict.FieldID,
			ReservationID: conflict.ID,
			StartsAt:      conflict.StartsAt,
			EndsAt:        conflict.EndsAt,
		}
	}

	stored := *res
	s.mu.Lock()
	s.records[stored.ID] = &stored
	s.byField[stored.FieldID] = append(s.byField[stored.FieldID], stored.ID)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.records[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	out := *res
	return &out, nil
}

func (s *MemoryStore) Confirm(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	s.mu.RLock()
	res, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrReservationNotFound
	}

	lock := s.fieldLock(res.FieldID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	res = s.records[id]
	switch res.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusConfirmed:
		out := *res
		return &out, nil
	}

	res.Status = StatusConfirmed
	res.UpdatedAt = time.Now().UTC()
	out := *res
	return &out, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	s.mu.RLock()
	res, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrReservationNotFound
	}

	lock := s.fieldLock(res.FieldID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	res = s.records[id]
	if res.Status == StatusCancelled {
		out := *res
		return &out, nil
	}

	res.Status = StatusCancelled
	res.UpdatedAt = time.Now().UTC()
	out := *res
	return &out, nil
}

func (s *MemoryStore) ListByHolder(ctx context.Context, holderID uuid.UUID) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Reservation
	for _, res := range s.records {
		if res.HolderUserID == holderID {
			result = append(result, *res)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListByField(ctx context.Context, fieldID uuid.UUID) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Reservation
	for _, id := range s.byField[fieldID] {
		result = append(result, *s.records[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

func (s *MemoryStore) ListActiveInWindow(ctx context.Context, fieldID uuid.UUID, from, to time.Time) ([]Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Reservation
	for _, id := range s.byField[fieldID] {
		res := s.records[id]
		if !res.Status.Active() {
			continue
		}
		if Overlaps(res.StartsAt, res.EndsAt, from, to) {
			result = append(result, *res)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}
