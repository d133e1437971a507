package memory

import (
	"context"
	"sort"
	"sync"

	"veilmarket/internal/domain"
	"veilmarket/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Market // keyed by market_id
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		data: make(map[string]*domain.Market),
	}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

// Insert adds a new market. Returns ErrDuplicateKey if market_id exists.
func (s *MarketStore) Insert(_ context.Context, m *domain.Market) error {
	if m == nil || m.MarketID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MarketID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	marketCopy := *m
	s.data[m.MarketID] = &marketCopy
	return nil
}

// GetByID retrieves a market by its ID. Returns ErrNotFound if not exists.
func (s *MarketStore) GetByID(_ context.Context, marketID string) (*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[marketID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	marketCopy := *m
	return &marketCopy, nil
}

// GetByPool retrieves a market by pool address. Returns ErrNotFound if not exists.
func (s *MarketStore) GetByPool(_ context.Context, pool string) (*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.data {
		if m.Pool == pool {
			marketCopy := *m
			return &marketCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List retrieves all markets, ordered by created_at ASC.
func (s *MarketStore) List(_ context.Context) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Market, 0, len(s.data))
	for _, m := range s.data {
		marketCopy := *m
		out = append(out, &marketCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].MarketID < out[j].MarketID
	})
	return out, nil
}
