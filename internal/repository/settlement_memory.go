package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/event-ticket-settlement/internal/model"
)

// MemorySettlementStore is an in-process SettlementStore.
type MemorySettlementStore struct {
	mu    sync.Mutex
	rows  []model.Settlement
	memos map[uint64]struct{}
}

// NewMemorySettlementStore returns an empty store.
func NewMemorySettlementStore() *MemorySettlementStore {
	return &MemorySettlementStore{memos: make(map[uint64]struct{})}
}

func (s *MemorySettlementStore) Put(_ context.Context, st model.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.memos[st.Memo]; dup {
		return ErrDuplicateMemo
	}
	s.memos[st.Memo] = struct{}{}
	s.rows = append(s.rows, st)
	return nil
}

func (s *MemorySettlementStore) ListByOwner(_ context.Context, owner string) ([]model.Settlement, error) {
	return s.filter(func(st model.Settlement) bool { return st.Owner == owner }), nil
}

func (s *MemorySettlementStore) ListByEvent(_ context.Context, eventID string) ([]model.Settlement, error) {
	return s.filter(func(st model.Settlement) bool { return st.EventID == eventID }), nil
}

// Len returns the number of stored settlements.
func (s *MemorySettlementStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemorySettlementStore) filter(keep func(model.Settlement) bool) []model.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Settlement{}
	for _, st := range s.rows {
		if keep(st) {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SettledAt.After(out[j].SettledAt) })
	return out
}
