package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// MemoryReservationStore is a ReservationStore guarded by a single mutex.
type MemoryReservationStore struct {
	mu     sync.Mutex
	byMemo map[uint64]model.Reservation
}

// NewMemoryReservationStore returns an empty store.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{byMemo: make(map[uint64]model.Reservation)}
}

func (s *MemoryReservationStore) Put(_ context.Context, r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byMemo[r.Memo]; exists {
		return ErrDuplicateMemo
	}
	s.byMemo[r.Memo] = r
	return nil
}

func (s *MemoryReservationStore) Get(_ context.Context, memo uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byMemo[memo]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryReservationStore) TakeByMemo(_ context.Context, memo uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byMemo[memo]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	delete(s.byMemo, memo)
	return r, nil
}

func (s *MemoryReservationStore) ListByEvent(_ context.Context, eventID string) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.byMemo {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *MemoryReservationStore) All(context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.byMemo))
	for _, r := range s.byMemo {
		out = append(out, r)
	}
	sortReservations(out)
	return out, nil
}
