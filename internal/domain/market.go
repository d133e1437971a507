package domain

// Market represents one binary prediction market's metadata.
// Corresponds to the markets table in PostgreSQL.
type Market struct {
	MarketID   string  // PRIMARY KEY, deterministic hash
	Question   string  // human-readable market question
	Pool       string  // on-chain pool address
	YesTokenID string  // outcome token identifier, YES side
	NoTokenID  string  // outcome token identifier, NO side
	FeeBps     int64   // pool swap fee in basis points
	Creator    *string // creator address (nullable)
	CreatedAt  int64   // record creation timestamp (ms)
}
