// Package wallet bridges the ledger's record RPC and the pure
// classification/selection core. It fetches raw records for an owner,
// classifies them, and answers spend-selection queries; it never builds
// or signs transactions.
package wallet

import (
	"context"
	"fmt"

	"veilmarket/internal/chain"
	"veilmarket/internal/domain"
	"veilmarket/internal/record"
	"veilmarket/internal/selection"
)

// Provider serves spendable-record queries for one owner address.
type Provider struct {
	client chain.RPCClient
	owner  string
}

// NewProvider creates a record provider. The owner address is validated
// once up front; a malformed owner is a configuration bug.
func NewProvider(client chain.RPCClient, owner string) (*Provider, error) {
	if err := ValidateOwnerAddress(owner); err != nil {
		return nil, fmt.Errorf("invalid owner address: %w", err)
	}
	return &Provider{client: client, owner: owner}, nil
}

// Owner returns the provider's owner address.
func (p *Provider) Owner() string {
	return p.owner
}

// Unspent fetches and classifies the owner's records. The result is a
// fresh projection on every call; nothing is cached.
func (p *Provider) Unspent(ctx context.Context) ([]*domain.UnspentRecord, error) {
	raws, err := p.client.GetRecords(ctx, p.owner)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return record.ClassifyAll(raws), nil
}

// SelectForAmount picks a single record covering target base units.
// A nil record with nil error means insufficient verified balance.
func (p *Provider) SelectForAmount(ctx context.Context, target int64) (*domain.UnspentRecord, error) {
	unspent, err := p.Unspent(ctx)
	if err != nil {
		return nil, err
	}
	return selection.ForAmount(unspent, target)
}

// SelectPair picks a distinct spend/fee record pair. A nil selection with
// nil error means insufficient funds; callers surface it to the user, not
// as a system error.
func (p *Provider) SelectPair(ctx context.Context, spendTarget, feeTarget int64) (*selection.PairSelection, error) {
	unspent, err := p.Unspent(ctx)
	if err != nil {
		return nil, err
	}
	return selection.Pair(unspent, spendTarget, feeTarget)
}

// Balance summarizes the owner's spendable records.
type Balance struct {
	// Verified is the sum of transparent record values in base units.
	Verified int64
	// OpaqueCount is the number of records whose value is hidden; their
	// total is unknown but non-zero.
	OpaqueCount int
}

// Balance computes a spendable-balance summary.
func (p *Provider) Balance(ctx context.Context) (*Balance, error) {
	unspent, err := p.Unspent(ctx)
	if err != nil {
		return nil, err
	}

	var b Balance
	for _, r := range unspent {
		if r.Opaque {
			b.OpaqueCount++
			continue
		}
		b.Verified += r.Value
	}
	return &b, nil
}
