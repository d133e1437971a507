// Package market glues chain snapshots to the pricing engine. The service
// fetches pool state, computes prices and swap quotes, and records price
// points; all arithmetic stays in the amm package.
package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"veilmarket/internal/amm"
	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
	"veilmarket/internal/observability"
	"veilmarket/internal/storage"
	"veilmarket/internal/units"
)

// Errors returned by the market service.
var (
	ErrMarketNotFound = errors.New("market not found")
	ErrNoClient       = errors.New("chain client is required")
)

// Service answers price and quote queries against live pool state.
type Service struct {
	client  chain.RPCClient
	markets storage.MarketStore
	points  storage.PricePointStore
	logger  *log.Logger
	now     func() time.Time
}

// ServiceOptions contains configuration for creating a Service.
type ServiceOptions struct {
	Client          chain.RPCClient
	MarketStore     storage.MarketStore     // optional; Register and Markets need it
	PricePointStore storage.PricePointStore // optional; Price records points when set
	Logger          *log.Logger
}

// NewService creates a new market service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		client:  opts.Client,
		markets: opts.MarketStore,
		points:  opts.PricePointStore,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// PriceInfo is one spot-price answer.
type PriceInfo struct {
	MarketID    string `json:"market_id"`
	YesPriceBps int64  `json:"yes_price_bps"`
	NoPriceBps  int64  `json:"no_price_bps"`
	YesReserve  int64  `json:"yes_reserve"`
	NoReserve   int64  `json:"no_reserve"`
	Height      int64  `json:"height"`
	Display     string `json:"display"`
}

// QuoteResult is a swap quote plus the minimum acceptable output after
// applying the caller's slippage tolerance.
type QuoteResult struct {
	domain.SwapQuote
	MinSharesOut int64 `json:"min_shares_out"`
}

// Price fetches the pool snapshot and computes the current YES price.
// When a price point store is configured the sample is persisted; duplicate
// samples for the same millisecond are silently dropped.
func (s *Service) Price(ctx context.Context, marketID string) (*PriceInfo, error) {
	pool, err := s.getPool(ctx, marketID)
	if err != nil {
		return nil, err
	}

	yesBps, err := amm.PriceYesBps(pool.YesReserve, pool.NoReserve)
	if err != nil {
		return nil, fmt.Errorf("compute price: %w", err)
	}
	observability.RecordPriceComputed()

	info := &PriceInfo{
		MarketID:    marketID,
		YesPriceBps: yesBps,
		NoPriceBps:  amm.BpsScale - yesBps,
		YesReserve:  pool.YesReserve,
		NoReserve:   pool.NoReserve,
		Height:      pool.Height,
		Display:     units.FormatPriceCents(yesBps, 0),
	}

	if s.points != nil {
		point := &domain.PricePoint{
			MarketID:    marketID,
			TimestampMs: s.now().UnixMilli(),
			Height:      pool.Height,
			YesPriceBps: yesBps,
			YesReserve:  pool.YesReserve,
			NoReserve:   pool.NoReserve,
		}
		err := s.points.InsertBulk(ctx, []*domain.PricePoint{point})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.Printf("Failed to store price point for %s: %v", marketID, err)
			observability.RecordDBQuery("clickhouse", "insert_price_point", 0, err)
		}
	}

	return info, nil
}

// Quote computes a swap quote for spending collateralIn on the given side,
// with minimum output derived from the caller's slippage tolerance in bps.
func (s *Service) Quote(ctx context.Context, marketID string, collateralIn int64, side domain.Side, slippageBps int64) (*QuoteResult, error) {
	start := time.Now()
	defer func() {
		observability.ObserveQuoteLatency(time.Since(start).Seconds())
	}()

	pool, err := s.getPool(ctx, marketID)
	if err != nil {
		return nil, err
	}

	quote, err := amm.Quote(pool, collateralIn, side)
	if err != nil {
		observability.RecordQuoteError("engine")
		return nil, fmt.Errorf("quote swap: %w", err)
	}

	minOut, err := amm.ApplySlippage(quote.SharesOut, slippageBps)
	if err != nil {
		observability.RecordQuoteError("slippage")
		return nil, fmt.Errorf("apply slippage: %w", err)
	}
	observability.RecordQuote(side.String())

	return &QuoteResult{SwapQuote: *quote, MinSharesOut: minOut}, nil
}

// Register fetches market metadata from the chain and stores it.
// Registering an already-known market returns the stored row.
func (s *Service) Register(ctx context.Context, marketID string) (*domain.Market, error) {
	if s.markets == nil {
		return nil, errors.New("market store is not configured")
	}

	m, err := s.client.GetMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("fetch market: %w", err)
	}
	if m == nil {
		return nil, ErrMarketNotFound
	}

	err = s.markets.Insert(ctx, m)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return s.markets.GetByID(ctx, marketID)
	}
	if err != nil {
		return nil, fmt.Errorf("store market: %w", err)
	}

	s.logger.Printf("Registered market %s (%s)", m.MarketID, m.Question)
	return m, nil
}

// Markets lists all registered markets.
func (s *Service) Markets(ctx context.Context) ([]*domain.Market, error) {
	if s.markets == nil {
		return nil, errors.New("market store is not configured")
	}
	return s.markets.List(ctx)
}

// History returns recorded price points for a market within [start, end].
func (s *Service) History(ctx context.Context, marketID string, start, end int64) ([]*domain.PricePoint, error) {
	if s.points == nil {
		return nil, errors.New("price point store is not configured")
	}
	return s.points.GetByTimeRange(ctx, marketID, start, end)
}

func (s *Service) getPool(ctx context.Context, marketID string) (*domain.PoolState, error) {
	pool, err := s.client.GetPoolState(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("fetch pool state: %w", err)
	}
	if pool == nil {
		return nil, ErrMarketNotFound
	}
	return pool, nil
}
