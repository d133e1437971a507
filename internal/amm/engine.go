// Package amm prices binary-outcome markets backed by a fixed-product pool
// and quotes collateral-for-shares swaps against it. All functions are pure
// over their inputs; reserves are never mutated.
package amm

import (
	"errors"
	"math/big"

	"veilmarket/internal/domain"
)

// BpsScale is the basis-point denominator: 10000 bps = 100%.
const BpsScale = int64(10_000)

// MidpointBps is the price reported for a pool with no liquidity.
// An empty pool carries no information, so both outcomes price at 50%.
const MidpointBps = BpsScale / 2

// Contract-violation errors. These indicate caller bugs, not data
// conditions, and are returned loudly rather than clamped.
var (
	ErrNegativeReserve = errors.New("amm: negative reserve")
	ErrNegativeInput   = errors.New("amm: negative input amount")
	ErrFeeOutOfRange   = errors.New("amm: fee bps outside [0, 10000]")
	ErrInvalidSide     = errors.New("amm: invalid side")
	ErrAmountOverflow  = errors.New("amm: amount exceeds int64 range")
)

// PriceYesBps derives the instantaneous YES price in basis points from the
// pool reserves. The price is the inverse reserve proportion: the more YES
// tokens sitting unsold in the pool, the cheaper YES is.
//
//	priceYes = round(10000 * no / (yes + no))
//
// A zero/zero pool returns MidpointBps instead of faulting.
func PriceYesBps(yesReserve, noReserve int64) (int64, error) {
	if yesReserve < 0 || noReserve < 0 {
		return 0, ErrNegativeReserve
	}
	if yesReserve == 0 && noReserve == 0 {
		return MidpointBps, nil
	}

	// round(10000*no/(yes+no)) with int64-overflow-safe big.Int arithmetic.
	// Ties round half to even: the two orientations of a tied pool land on
	// the same integer parity, which keeps yes+no exactly at full scale.
	total := new(big.Int).Add(big.NewInt(yesReserve), big.NewInt(noReserve))
	num := new(big.Int).Mul(big.NewInt(noReserve), big.NewInt(BpsScale))
	q, r := new(big.Int).QuoRem(num, total, new(big.Int))
	switch r.Lsh(r, 1).Cmp(total) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return q.Int64(), nil
}

// PriceNoBps derives the NO price; YES and NO always sum to the full scale.
func PriceNoBps(yesReserve, noReserve int64) (int64, error) {
	yes, err := PriceYesBps(yesReserve, noReserve)
	if err != nil {
		return 0, err
	}
	return BpsScale - yes, nil
}

// PriceBps returns the price of the requested side.
func PriceBps(side domain.Side, yesReserve, noReserve int64) (int64, error) {
	switch side {
	case domain.SideYes:
		return PriceYesBps(yesReserve, noReserve)
	case domain.SideNo:
		return PriceNoBps(yesReserve, noReserve)
	default:
		return 0, ErrInvalidSide
	}
}

// QuoteSwap computes the expected outcome shares for spending collateralIn
// on the given side of the pool.
//
// The fee comes off the input first. The effective input is then minted
// into both reserves, preserving the 1:1:1 collateral/YES/NO backing, and
// the pool releases enough of the bought side to hold yes*no constant.
// For a YES buy:
//
//	e   = in * (10000 - feeBps) / 10000
//	out = e + yes - ceil(yes * no / (no + e))
//
// The new reserve is rounded up (pool keeps the remainder), so the quote
// never overstates what the pool would pay. Output is e plus a bonus from
// the opposite reserve: always >= e, with diminishing returns as e grows
// against pool depth.
func QuoteSwap(collateralIn, yesReserve, noReserve, feeBps int64, side domain.Side) (int64, error) {
	if collateralIn < 0 {
		return 0, ErrNegativeInput
	}
	if yesReserve < 0 || noReserve < 0 {
		return 0, ErrNegativeReserve
	}
	if feeBps < 0 || feeBps > BpsScale {
		return 0, ErrFeeOutOfRange
	}
	if !side.IsValid() {
		return 0, ErrInvalidSide
	}
	if collateralIn == 0 {
		return 0, nil
	}

	// Orient the pool so "buy" is the requested side and "other" is the
	// reserve the bonus is drawn from.
	buy, other := yesReserve, noReserve
	if side == domain.SideNo {
		buy, other = noReserve, yesReserve
	}

	// e = in * (10000 - feeBps) / 10000, floored
	e := new(big.Int).Mul(big.NewInt(collateralIn), big.NewInt(BpsScale-feeBps))
	e.Quo(e, big.NewInt(BpsScale))
	if e.Sign() == 0 {
		return 0, nil
	}

	// newBuyReserve = ceil(buy * other / (other + e))
	k := new(big.Int).Mul(big.NewInt(buy), big.NewInt(other))
	denom := new(big.Int).Add(big.NewInt(other), e)
	newBuy, rem := new(big.Int).QuoRem(k, denom, new(big.Int))
	if rem.Sign() != 0 {
		newBuy.Add(newBuy, big.NewInt(1))
	}

	// out = e + buy - newBuyReserve
	out := new(big.Int).Add(e, big.NewInt(buy))
	out.Sub(out, newBuy)
	if !out.IsInt64() {
		return 0, ErrAmountOverflow
	}
	return out.Int64(), nil
}

// Quote builds a full SwapQuote from a pool snapshot.
func Quote(pool *domain.PoolState, collateralIn int64, side domain.Side) (*domain.SwapQuote, error) {
	price, err := PriceBps(side, pool.YesReserve, pool.NoReserve)
	if err != nil {
		return nil, err
	}

	out, err := QuoteSwap(collateralIn, pool.YesReserve, pool.NoReserve, pool.FeeBps, side)
	if err != nil {
		return nil, err
	}

	eff := new(big.Int).Mul(big.NewInt(collateralIn), big.NewInt(BpsScale-pool.FeeBps))
	eff.Quo(eff, big.NewInt(BpsScale))
	effective := eff.Int64()
	return &domain.SwapQuote{
		Side:         side,
		CollateralIn: collateralIn,
		EffectiveIn:  effective,
		SharesOut:    out,
		PriceBps:     price,
	}, nil
}

// ApplySlippage reduces an expected output by a caller-chosen tolerance in
// basis points, producing the minimum acceptable output for a transaction.
// Slippage policy belongs to the caller; the quote itself never includes it.
func ApplySlippage(sharesOut, slippageBps int64) (int64, error) {
	if slippageBps < 0 || slippageBps > BpsScale {
		return 0, ErrFeeOutOfRange
	}
	if sharesOut < 0 {
		return 0, ErrNegativeInput
	}
	min := new(big.Int).Mul(big.NewInt(sharesOut), big.NewInt(BpsScale-slippageBps))
	min.Quo(min, big.NewInt(BpsScale))
	return min.Int64(), nil
}
