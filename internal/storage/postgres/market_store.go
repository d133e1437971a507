package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"veilmarket/internal/domain"
	"veilmarket/internal/storage"
)

// MarketStore implements storage.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *Pool
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(pool *Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

// Insert adds a new market. Returns ErrDuplicateKey if market_id or pool exists.
func (s *MarketStore) Insert(ctx context.Context, m *domain.Market) error {
	if m == nil || m.MarketID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO markets (
			market_id, question, pool, yes_token_id, no_token_id, fee_bps, creator, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		m.MarketID,
		m.Question,
		m.Pool,
		m.YesTokenID,
		m.NoTokenID,
		m.FeeBps,
		m.Creator,
		m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert market: %w", err)
	}
	return nil
}

// GetByID retrieves a market by its ID. Returns ErrNotFound if not exists.
func (s *MarketStore) GetByID(ctx context.Context, marketID string) (*domain.Market, error) {
	query := `
		SELECT market_id, question, pool, yes_token_id, no_token_id, fee_bps, creator, created_at
		FROM markets
		WHERE market_id = $1
	`

	row := s.pool.QueryRow(ctx, query, marketID)
	return scanMarket(row)
}

// GetByPool retrieves a market by pool address. Returns ErrNotFound if not exists.
func (s *MarketStore) GetByPool(ctx context.Context, pool string) (*domain.Market, error) {
	query := `
		SELECT market_id, question, pool, yes_token_id, no_token_id, fee_bps, creator, created_at
		FROM markets
		WHERE pool = $1
	`

	row := s.pool.QueryRow(ctx, query, pool)
	return scanMarket(row)
}

// List retrieves all markets, ordered by created_at ASC.
func (s *MarketStore) List(ctx context.Context) ([]*domain.Market, error) {
	query := `
		SELECT market_id, question, pool, yes_token_id, no_token_id, fee_bps, creator, created_at
		FROM markets
		ORDER BY created_at ASC, market_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	defer rows.Close()

	var markets []*domain.Market
	for rows.Next() {
		m, err := scanMarketRow(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market rows: %w", err)
	}

	return markets, nil
}

// scanMarket scans a single row into a Market.
func scanMarket(row pgx.Row) (*domain.Market, error) {
	var m domain.Market

	err := row.Scan(
		&m.MarketID,
		&m.Question,
		&m.Pool,
		&m.YesTokenID,
		&m.NoTokenID,
		&m.FeeBps,
		&m.Creator,
		&m.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan market row: %w", err)
	}

	return &m, nil
}

// scanMarketRow scans the current row of a result set into a Market.
func scanMarketRow(rows pgx.Rows) (*domain.Market, error) {
	var m domain.Market

	err := rows.Scan(
		&m.MarketID,
		&m.Question,
		&m.Pool,
		&m.YesTokenID,
		&m.NoTokenID,
		&m.FeeBps,
		&m.Creator,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan market row: %w", err)
	}

	return &m, nil
}
