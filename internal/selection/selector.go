// Package selection chooses unspent records to cover spend and fee amounts.
// Selection is pure: it never mutates records, does no I/O, and signals
// insufficient funds with a nil result rather than an error.
package selection

import (
	"errors"
	"sort"

	"veilmarket/internal/domain"
)

// ErrNegativeTarget is returned when a caller passes a negative amount.
// This is a caller bug, not a data condition.
var ErrNegativeTarget = errors.New("selection: negative target amount")

// PairSelection holds one record covering a spend and a second, distinct
// record covering the fee.
type PairSelection struct {
	Spend *domain.UnspentRecord
	Fee   *domain.UnspentRecord
}

// ForAmount picks the cheapest single record whose value covers target.
// A nil result means no record can be proven sufficient; callers surface
// that as an insufficient-balance condition.
//
// When every record is opaque and the target exceeds the opaque sentinel,
// no record's true value can be verified to cover it, so nothing is
// selected rather than risking an on-chain spend failure.
func ForAmount(records []*domain.UnspentRecord, target int64) (*domain.UnspentRecord, error) {
	if target < 0 {
		return nil, ErrNegativeTarget
	}
	if len(records) == 0 {
		return nil, nil
	}

	if allOpaque(records) && target > domain.OpaqueSentinelValue {
		return nil, nil
	}

	var best *domain.UnspentRecord
	for _, r := range records {
		if r == nil || r.Value < target {
			continue
		}
		if best == nil || r.Value < best.Value {
			best = r
		}
	}
	return best, nil
}

// Pair picks two pairwise-distinct records covering spendTarget and
// feeTarget respectively. A nil result means insufficient funds.
//
// With any opaque record in the set, values are unverifiable, so the pair
// is chosen by distinctness alone: the first record spends, the first
// other distinct record pays the fee. With full visibility, the records
// are ranked by value descending and each slot gets a covering record.
func Pair(records []*domain.UnspentRecord, spendTarget, feeTarget int64) (*PairSelection, error) {
	if spendTarget < 0 || feeTarget < 0 {
		return nil, ErrNegativeTarget
	}
	if len(records) < 2 {
		return nil, nil
	}

	if anyOpaque(records) {
		return pairOpaque(records), nil
	}
	return pairTransparent(records, spendTarget, feeTarget), nil
}

// pairOpaque applies the conservative rule for sets containing opaque
// records: no value verification, only distinctness.
func pairOpaque(records []*domain.UnspentRecord) *PairSelection {
	spend := records[0]
	if spend == nil {
		return nil
	}
	for _, r := range records[1:] {
		if r != nil && spend.Distinct(r) {
			return &PairSelection{Spend: spend, Fee: r}
		}
	}
	return nil
}

// pairTransparent selects by value: the largest record covering the spend,
// then another distinct record covering the fee.
func pairTransparent(records []*domain.UnspentRecord, spendTarget, feeTarget int64) *PairSelection {
	sorted := make([]*domain.UnspentRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var spend *domain.UnspentRecord
	for _, r := range sorted {
		if r.Value >= spendTarget {
			spend = r
			break
		}
	}
	if spend == nil {
		return nil
	}

	var fee *domain.UnspentRecord
	for _, r := range sorted {
		if r == spend {
			continue
		}
		if r.Value >= feeTarget && spend.Distinct(r) {
			fee = r
			break
		}
	}
	if fee == nil {
		return nil
	}

	// Re-validate before returning: two records from a buggy wallet could
	// share an identity even after the scans above.
	if !spend.Distinct(fee) {
		return nil
	}
	return &PairSelection{Spend: spend, Fee: fee}
}

func allOpaque(records []*domain.UnspentRecord) bool {
	for _, r := range records {
		if r != nil && !r.Opaque {
			return false
		}
	}
	return true
}

func anyOpaque(records []*domain.UnspentRecord) bool {
	for _, r := range records {
		if r != nil && r.Opaque {
			return true
		}
	}
	return false
}
