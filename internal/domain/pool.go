package domain

// PoolState is a point-in-time snapshot of a market's AMM pool as reported
// by the chain. The core never mutates or stores it; every quote call takes
// a fresh snapshot from the caller.
type PoolState struct {
	MarketID   string
	YesReserve int64 // outcome-token inventory in base units
	NoReserve  int64
	FeeBps     int64 // swap fee in basis points, 0..10000
	Height     int64 // chain height the snapshot was taken at
}

// SwapQuote is the expected result of a collateral-for-shares swap against
// a pool snapshot. Derived, never stored.
type SwapQuote struct {
	Side         Side
	CollateralIn int64 // base units paid in
	EffectiveIn  int64 // input after the fee is taken off the top
	SharesOut    int64 // expected outcome shares in base units
	PriceBps     int64 // instantaneous price of Side before the swap
}
