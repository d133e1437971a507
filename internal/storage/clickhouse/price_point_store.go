package clickhouse

import (
	"context"
	"fmt"

	"veilmarket/internal/domain"
	"veilmarket/internal/storage"
)

// PricePointStore implements storage.PricePointStore using ClickHouse.
type PricePointStore struct {
	conn *Conn
}

// NewPricePointStore creates a new PricePointStore.
func NewPricePointStore(conn *Conn) *PricePointStore {
	return &PricePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (market_id, timestamp_ms).
func (s *PricePointStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		marketID    string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.MarketID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.MarketID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree doesn't enforce uniqueness, so check against existing rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.MarketID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_points (
			market_id, timestamp_ms, height, yes_price_bps, yes_reserve, no_reserve
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.MarketID, uint64(p.TimestampMs), uint64(p.Height),
			uint16(p.YesPriceBps), p.YesReserve, p.NoReserve,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMarketID retrieves all points for a market, ordered by timestamp ASC.
func (s *PricePointStore) GetByMarketID(ctx context.Context, marketID string) ([]*domain.PricePoint, error) {
	query := `
		SELECT market_id, timestamp_ms, height, yes_price_bps, yes_reserve, no_reserve
		FROM price_points
		WHERE market_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("query by market id: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves points for a market within [start, end] (inclusive).
func (s *PricePointStore) GetByTimeRange(ctx context.Context, marketID string, start, end int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT market_id, timestamp_ms, height, yes_price_bps, yes_reserve, no_reserve
		FROM price_points
		WHERE market_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, marketID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// Latest retrieves the most recent point for a market.
func (s *PricePointStore) Latest(ctx context.Context, marketID string) (*domain.PricePoint, error) {
	query := `
		SELECT market_id, timestamp_ms, height, yes_price_bps, yes_reserve, no_reserve
		FROM price_points
		WHERE market_id = ?
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	points, err := scanPricePoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// exists checks if a point with the given key exists.
func (s *PricePointStore) exists(ctx context.Context, marketID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_points
		WHERE market_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, marketID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPricePoints scans multiple rows.
func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs, height uint64
		var priceBps uint16

		err := rows.Scan(
			&p.MarketID, &timestampMs, &height,
			&priceBps, &p.YesReserve, &p.NoReserve,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Height = int64(height)
		p.YesPriceBps = int64(priceBps)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
