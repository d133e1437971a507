package stub

import (
	"context"
	"errors"

	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
)

// RPCClient implements chain.RPCClient for testing.
type RPCClient struct {
	Pools   map[string]*domain.PoolState
	Markets map[string]*domain.Market
	Records map[string][]domain.RawRecord
	Height  int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Pools:   make(map[string]*domain.PoolState),
		Markets: make(map[string]*domain.Market),
		Records: make(map[string][]domain.RawRecord),
	}
}

// GetPoolState retrieves a pool snapshot from the stub store.
func (c *RPCClient) GetPoolState(_ context.Context, marketID string) (*domain.PoolState, error) {
	pool, ok := c.Pools[marketID]
	if !ok {
		// Unknown pools mirror the HTTP client: nil result, no error
		return nil, nil
	}
	snapshot := *pool
	return &snapshot, nil
}

// GetRecords retrieves an owner's raw records from the stub store.
func (c *RPCClient) GetRecords(_ context.Context, owner string) ([]domain.RawRecord, error) {
	return c.Records[owner], nil
}

// GetMarket retrieves market metadata from the stub store.
func (c *RPCClient) GetMarket(_ context.Context, marketID string) (*domain.Market, error) {
	m, ok := c.Markets[marketID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// GetHeight returns the stub height.
func (c *RPCClient) GetHeight(_ context.Context) (int64, error) {
	return c.Height, nil
}

// Compile-time interface check.
var _ chain.RPCClient = (*RPCClient)(nil)

// WSClient implements chain.WSClient for testing. Notifications pushed via
// Publish are fanned out to every subscriber.
type WSClient struct {
	subs   []chan chain.PoolNotification
	closed bool
}

// NewWSClient creates a new stub WS client.
func NewWSClient() *WSClient {
	return &WSClient{}
}

// SubscribePools registers a subscriber channel.
func (c *WSClient) SubscribePools(_ context.Context, _ chain.PoolFilter) (<-chan chain.PoolNotification, error) {
	if c.closed {
		return nil, errors.New("client closed")
	}
	ch := make(chan chain.PoolNotification, 100)
	c.subs = append(c.subs, ch)
	return ch, nil
}

// Publish delivers a notification to all subscribers.
func (c *WSClient) Publish(n chain.PoolNotification) {
	for _, ch := range c.subs {
		ch <- n
	}
}

// Close closes all subscriber channels.
func (c *WSClient) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	return nil
}

var _ chain.WSClient = (*WSClient)(nil)
