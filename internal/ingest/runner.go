// Package ingest turns the pool-update subscription into stored price
// points. One runner per process; it owns the WebSocket subscription and
// flushes sampled prices to storage in batches.
package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"veilmarket/internal/amm"
	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
	"veilmarket/internal/observability"
	"veilmarket/internal/storage"
)

// Runner consumes pool notifications and records price points.
type Runner struct {
	ws            chain.WSClient
	points        storage.PricePointStore
	markets       []string
	batchSize     int
	flushInterval time.Duration
	logger        *log.Logger

	buffer []*domain.PricePoint
	// seen dedups samples still sitting in the buffer. Entries are
	// released once their batch is persisted; after that the store's own
	// key check rejects replays, so the map stays bounded by batch size.
	seen map[sampleKey]struct{}
}

type sampleKey struct {
	marketID    string
	timestampMs int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	WSClient        chain.WSClient
	PricePointStore storage.PricePointStore
	Markets         []string      // empty subscribes to all markets
	BatchSize       int           // Default: 100 points per bulk insert
	FlushInterval   time.Duration // Default: 5s
	Logger          *log.Logger
}

// NewRunner creates a new ingest runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.WSClient == nil {
		return nil, errors.New("ws client is required")
	}
	if opts.PricePointStore == nil {
		return nil, errors.New("price point store is required")
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		ws:            opts.WSClient,
		points:        opts.PricePointStore,
		markets:       opts.Markets,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		seen:          make(map[sampleKey]struct{}),
	}, nil
}

// Run subscribes to pool updates and records price points until the context
// is cancelled. Buffered points are flushed before returning.
func (r *Runner) Run(ctx context.Context) error {
	notifications, err := r.ws.SubscribePools(ctx, chain.PoolFilter{Markets: r.markets})
	if err != nil {
		return err
	}
	r.logger.Printf("Ingest runner started, batch size: %d, flush interval: %v", r.batchSize, r.flushInterval)

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush(context.Background())
			r.logger.Println("Ingest runner stopping...")
			return ctx.Err()

		case n, ok := <-notifications:
			if !ok {
				r.flush(ctx)
				r.logger.Println("Pool notification channel closed")
				return errors.New("pool notification channel closed")
			}
			r.handleNotification(ctx, n)

		case <-flushTicker.C:
			r.flush(ctx)
		}
	}
}

// handleNotification converts one pool update into a buffered price point.
func (r *Runner) handleNotification(ctx context.Context, n chain.PoolNotification) {
	yesBps, err := amm.PriceYesBps(n.YesReserve, n.NoReserve)
	if err != nil {
		r.logger.Printf("Dropping pool update for %s: %v", n.MarketID, err)
		observability.RecordIngestError("bad_reserves")
		return
	}

	key := sampleKey{n.MarketID, n.TimestampMs}
	if _, dup := r.seen[key]; dup {
		observability.RecordIngestError("duplicate_sample")
		return
	}
	r.seen[key] = struct{}{}

	r.buffer = append(r.buffer, &domain.PricePoint{
		MarketID:    n.MarketID,
		TimestampMs: n.TimestampMs,
		Height:      n.Height,
		YesPriceBps: yesBps,
		YesReserve:  n.YesReserve,
		NoReserve:   n.NoReserve,
	})

	observability.RecordPoolUpdate(n.TimestampMs)
	observability.UpdateChainHeight(n.Height)

	if len(r.buffer) >= r.batchSize {
		r.flush(ctx)
	}
}

// flush writes buffered points to storage. On a duplicate-key conflict the
// batch is retried point by point so one stale sample can't wedge the runner.
func (r *Runner) flush(ctx context.Context) {
	if len(r.buffer) == 0 {
		return
	}

	batch := r.buffer
	r.buffer = nil

	err := r.points.InsertBulk(ctx, batch)
	if err == nil {
		r.forget(batch)
		observability.RecordPricePointsStored(len(batch))
		return
	}

	if !errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Printf("Failed to store %d price points: %v", len(batch), err)
		observability.RecordIngestError("store")
		// Put the batch back for the next flush
		r.buffer = append(batch, r.buffer...)
		return
	}

	stored := 0
	for _, p := range batch {
		err := r.points.InsertBulk(ctx, []*domain.PricePoint{p})
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordIngestError("duplicate_sample")
			continue
		}
		if err != nil {
			r.logger.Printf("Failed to store price point for %s: %v", p.MarketID, err)
			observability.RecordIngestError("store")
			continue
		}
		stored++
	}
	// Every point in the batch is now either persisted, a known
	// duplicate, or dropped; none of them return to the buffer.
	r.forget(batch)
	observability.RecordPricePointsStored(stored)
}

// forget releases the dedup entries for points that left the buffer.
func (r *Runner) forget(batch []*domain.PricePoint) {
	for _, p := range batch {
		delete(r.seen, sampleKey{p.MarketID, p.TimestampMs})
	}
}
