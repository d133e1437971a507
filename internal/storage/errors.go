package storage

import "errors"

// Sentinel errors shared by the market and price-point stores.
var (
	// ErrNotFound is returned when a requested market or sample does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// key: a market ID, a pool address, or a (market, timestamp) sample.
	// Stores never update in place; callers decide whether a collision is
	// an error or an idempotent no-op.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
