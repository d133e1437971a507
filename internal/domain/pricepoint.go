package domain

// PricePoint is one sampled market price, derived from a pool-state update.
// Corresponds to the price_points table in ClickHouse.
type PricePoint struct {
	MarketID    string // market identifier
	TimestampMs int64  // Unix timestamp in milliseconds
	Height      int64  // chain height of the underlying pool update
	YesPriceBps int64  // YES price in basis points
	YesReserve  int64  // pool YES reserve at sample time
	NoReserve   int64  // pool NO reserve at sample time
}
