// Package units converts between display credits and integer base units
// and formats basis-point prices for display.
package units

import (
	"fmt"
	"math"
)

// BaseUnitsPerCredit is the fixed-point ratio: one display credit is
// 1,000,000 base units.
const BaseUnitsPerCredit = 1_000_000

// ToBaseUnits converts a display amount to base units. The result is exact
// over floats; callers that need an integer spend amount must truncate,
// see FloorBaseUnits.
func ToBaseUnits(display float64) float64 {
	return display * BaseUnitsPerCredit
}

// ToDisplayUnits converts a base-unit amount to display credits.
// Inverse of ToBaseUnits.
func ToDisplayUnits(base float64) float64 {
	return base / BaseUnitsPerCredit
}

// FloorBaseUnits converts a display amount to an integer base-unit amount,
// truncating downward so a spend never exceeds what the user typed.
func FloorBaseUnits(display float64) int64 {
	return int64(math.Floor(ToBaseUnits(display)))
}

// FormatPriceCents renders a basis-point price (10000 = 100%) as a cents
// string. decimals selects 0 ("60¢", rounded) or 1 ("60.0¢", fixed).
func FormatPriceCents(bps int64, decimals int) string {
	cents := float64(bps) / 100
	if decimals <= 0 {
		return fmt.Sprintf("%d¢", int64(math.Round(cents)))
	}
	return fmt.Sprintf("%.1f¢", cents)
}
