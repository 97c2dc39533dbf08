package store

import (
	"context"
	"sync"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

// MemoryCounterStore is an in-memory implementation of CounterStore.
// Suitable for single-instance deployments and tests.
type MemoryCounterStore struct {
	counts map[string]domain.Counts // classSessionID -> counters
	mu     sync.Mutex
}

// NewMemoryCounterStore creates a new in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counts: make(map[string]domain.Counts),
	}
}

func (s *MemoryCounterStore) IncrJoined(ctx context.Context, classSessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counts[classSessionID]
	c.Joined++
	s.counts[classSessionID] = c
	return c.Joined, nil
}

func (s *MemoryCounterStore) DecrJoined(ctx context.Context, classSessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counts[classSessionID]
	if c.Joined > 0 {
		c.Joined--
	}
	s.counts[classSessionID] = c
	return c.Joined, nil
}

func (s *MemoryCounterStore) IncrEnterEvents(ctx context.Context, classSessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counts[classSessionID]
	c.EnterEvents++
	s.counts[classSessionID] = c
	return c.EnterEvents, nil
}

func (s *MemoryCounterStore) GetCounts(ctx context.Context, classSessionID string) (domain.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[classSessionID], nil
}

func (s *MemoryCounterStore) SetCounts(ctx context.Context, classSessionID string, counts domain.Counts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[classSessionID] = counts
	return nil
}

func (s *MemoryCounterStore) Close() error {
	return nil
}

var _ CounterStore = (*MemoryCounterStore)(nil)
