package wallet

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	ErrBadAddressLength = errors.New("wallet: address does not decode to 32 bytes")
	ErrOffCurve         = errors.New("wallet: address is not a valid curve point")
)

// ValidateOwnerAddress checks that an owner address is a base58-encoded
// 32-byte ed25519 public key on the curve. Off-curve values are program
// addresses, not spendable owners.
func ValidateOwnerAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return ErrBadAddressLength
	}
	if !isOnCurve(raw) {
		return ErrOffCurve
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
