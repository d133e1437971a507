package storage

import (
	"context"

	"veilmarket/internal/domain"
)

// MarketStore provides access to markets storage.
type MarketStore interface {
	// Insert adds a new market. Returns ErrDuplicateKey if market_id exists.
	Insert(ctx context.Context, m *domain.Market) error

	// GetByID retrieves a market by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, marketID string) (*domain.Market, error)

	// GetByPool retrieves a market by pool address. Returns ErrNotFound if not exists.
	GetByPool(ctx context.Context, pool string) (*domain.Market, error)

	// List retrieves all markets, ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.Market, error)
}

// PricePointStore provides access to price_points storage.
type PricePointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (market_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByMarketID retrieves all points for a market, ordered by timestamp ASC.
	GetByMarketID(ctx context.Context, marketID string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a market within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, marketID string, start, end int64) ([]*domain.PricePoint, error)

	// Latest retrieves the most recent point for a market.
	// Returns ErrNotFound if the market has no points.
	Latest(ctx context.Context, marketID string) (*domain.PricePoint, error)
}
