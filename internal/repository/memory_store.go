package repository

import (
	"context"
	"sort"
	"sync"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
)

// MemoryStore keeps price histories in process. Used for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]models.PricePoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]models.PricePoint)}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

// Append inserts points keeping each series sorted by date. Points sharing a
// date keep arrival order.
func (s *MemoryStore) Append(_ context.Context, productID string, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.series[productID]
	for _, p := range points {
		p.Date = p.Date.UTC()
		i := sort.Search(len(cur), func(i int) bool { return cur[i].Date.After(p.Date) })
		cur = append(cur, models.PricePoint{})
		copy(cur[i+1:], cur[i:])
		cur[i] = p
	}
	s.series[productID] = cur
	return nil
}

func (s *MemoryStore) History(_ context.Context, productID string, limit int) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur := s.series[productID]
	if limit > 0 && len(cur) > limit {
		cur = cur[len(cur)-limit:]
	}
	out := make([]models.PricePoint, len(cur))
	copy(out, cur)
	return out, nil
}

func (s *MemoryStore) Products(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.series))
	for id := range s.series {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ domrepo.PriceStore = (*MemoryStore)(nil)
