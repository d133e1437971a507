package memory

import (
	"context"
	"sort"
	"sync"

	"veilmarket/internal/domain"
	"veilmarket/internal/storage"
)

// PricePointStore is an in-memory implementation of storage.PricePointStore.
type PricePointStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PricePoint // keyed by market_id, sorted by timestamp
	seen map[pricePointKey]struct{}
}

type pricePointKey struct {
	marketID    string
	timestampMs int64
}

// NewPricePointStore creates a new in-memory price point store.
func NewPricePointStore() *PricePointStore {
	return &PricePointStore{
		data: make(map[string][]*domain.PricePoint),
		seen: make(map[pricePointKey]struct{}),
	}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (market_id, timestamp_ms); nothing is written on failure.
func (s *PricePointStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before writing anything
	batchSeen := make(map[pricePointKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.MarketID == "" {
			return storage.ErrInvalidInput
		}
		k := pricePointKey{p.MarketID, p.TimestampMs}
		if _, dup := batchSeen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := s.seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		batchSeen[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[p.MarketID] = append(s.data[p.MarketID], &pointCopy)
		s.seen[pricePointKey{p.MarketID, p.TimestampMs}] = struct{}{}
	}
	for marketID := range s.data {
		sort.Slice(s.data[marketID], func(i, j int) bool {
			return s.data[marketID][i].TimestampMs < s.data[marketID][j].TimestampMs
		})
	}
	return nil
}

// GetByMarketID retrieves all points for a market, ordered by timestamp ASC.
func (s *PricePointStore) GetByMarketID(_ context.Context, marketID string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[marketID]
	out := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		out = append(out, &pointCopy)
	}
	return out, nil
}

// GetByTimeRange retrieves points for a market within [start, end] (inclusive).
func (s *PricePointStore) GetByTimeRange(_ context.Context, marketID string, start, end int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PricePoint
	for _, p := range s.data[marketID] {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			out = append(out, &pointCopy)
		}
	}
	return out, nil
}

// Latest retrieves the most recent point for a market.
func (s *PricePointStore) Latest(_ context.Context, marketID string) (*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[marketID]
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	pointCopy := *points[len(points)-1]
	return &pointCopy, nil
}
