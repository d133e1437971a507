package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeMarketID computes a deterministic market_id using SHA256.
// Formula: SHA256(pool|yes_token|no_token|creator|height)
// Returns hex-encoded hash (64 characters).
func ComputeMarketID(
	pool string,
	yesTokenID string,
	noTokenID string,
	creator *string,
	height int64,
) string {
	creatorStr := ""
	if creator != nil {
		creatorStr = *creator
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		pool,
		yesTokenID,
		noTokenID,
		creatorStr,
		height,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
