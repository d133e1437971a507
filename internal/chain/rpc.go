// Package chain talks to the shielded ledger: a JSON-RPC HTTP client for
// snapshot queries and a WebSocket client for pool-update subscriptions.
// Everything here hands snapshots to the pure core; no chain state is
// cached or refreshed on the core's behalf.
package chain

import (
	"context"

	"veilmarket/internal/domain"
)

// RPCClient defines the ledger's JSON-RPC HTTP interface.
type RPCClient interface {
	// GetPoolState retrieves the current AMM pool snapshot for a market.
	GetPoolState(ctx context.Context, marketID string) (*domain.PoolState, error)

	// GetRecords retrieves the raw records held by an owner address.
	// Record shapes are wallet-defined; classification happens downstream.
	GetRecords(ctx context.Context, owner string) ([]domain.RawRecord, error)

	// GetMarket retrieves on-chain market metadata.
	GetMarket(ctx context.Context, marketID string) (*domain.Market, error)

	// GetHeight retrieves the current chain height.
	GetHeight(ctx context.Context) (int64, error)
}
