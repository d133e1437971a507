package chain

// getPoolStateResult is the wire shape of market_getPoolState.
type getPoolStateResult struct {
	MarketID   string `json:"marketId"`
	YesReserve int64  `json:"yesReserve"`
	NoReserve  int64  `json:"noReserve"`
	FeeBps     int64  `json:"feeBps"`
	Height     int64  `json:"height"`
}

// getMarketResult is the wire shape of market_get.
type getMarketResult struct {
	MarketID   string  `json:"marketId"`
	Question   string  `json:"question"`
	Pool       string  `json:"pool"`
	YesTokenID string  `json:"yesTokenId"`
	NoTokenID  string  `json:"noTokenId"`
	FeeBps     int64   `json:"feeBps"`
	Creator    *string `json:"creator"`
	CreatedAt  int64   `json:"createdAt"`
}
