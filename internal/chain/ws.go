package chain

import "context"

// WSClient defines the ledger's WebSocket subscription interface.
type WSClient interface {
	// SubscribePools subscribes to pool-state updates matching the filter.
	SubscribePools(ctx context.Context, filter PoolFilter) (<-chan PoolNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// PoolFilter defines a subscription filter for pool updates.
type PoolFilter struct {
	// Markets limits updates to these market IDs; empty means all markets.
	Markets []string
}

// PoolNotification represents one pool-update subscription message.
type PoolNotification struct {
	MarketID    string
	YesReserve  int64
	NoReserve   int64
	FeeBps      int64
	Height      int64
	TimestampMs int64
}
