package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veilmarket/internal/domain"
)

func rec(id string, value int64) *domain.UnspentRecord {
	return &domain.UnspentRecord{ID: id, Value: value}
}

func opaque(id string) *domain.UnspentRecord {
	return &domain.UnspentRecord{ID: id, Value: domain.OpaqueSentinelValue, Opaque: true}
}

func TestForAmount(t *testing.T) {
	tests := []struct {
		name    string
		records []*domain.UnspentRecord
		target  int64
		wantID  string // "" means no selection
	}{
		{
			name:    "cheapest sufficient wins",
			records: []*domain.UnspentRecord{rec("a", 500_000), rec("b", 1_500_000)},
			target:  1_000_000,
			wantID:  "b",
		},
		{
			name:    "minimizes change",
			records: []*domain.UnspentRecord{rec("big", 9_000_000), rec("fit", 1_100_000), rec("small", 900_000)},
			target:  1_000_000,
			wantID:  "fit",
		},
		{
			name:    "exact cover",
			records: []*domain.UnspentRecord{rec("a", 1_000_000)},
			target:  1_000_000,
			wantID:  "a",
		},
		{
			name:    "insufficient funds",
			records: []*domain.UnspentRecord{rec("a", 10), rec("b", 20)},
			target:  1_000_000,
			wantID:  "",
		},
		{
			name:    "empty set",
			records: nil,
			target:  1,
			wantID:  "",
		},
		{
			name:    "all opaque large target rejected",
			records: []*domain.UnspentRecord{opaque("o1"), opaque("o2")},
			target:  2,
			wantID:  "",
		},
		{
			name:    "all opaque sentinel target accepted",
			records: []*domain.UnspentRecord{opaque("o1")},
			target:  1,
			wantID:  "o1",
		},
		{
			name:    "mixed set ignores opaque for large target",
			records: []*domain.UnspentRecord{opaque("o1"), rec("t", 5_000_000)},
			target:  2_000_000,
			wantID:  "t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForAmount(tt.records, tt.target)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
			assert.GreaterOrEqual(t, got.Value, tt.target)
		})
	}
}

func TestForAmountSufficiencyProperty(t *testing.T) {
	records := []*domain.UnspentRecord{
		rec("a", 3), rec("b", 7), rec("c", 20), rec("d", 20), rec("e", 1000),
	}
	for target := int64(0); target <= 1000; target += 13 {
		got, err := ForAmount(records, target)
		require.NoError(t, err)
		require.NotNil(t, got, "target %d within max value must select", target)
		assert.GreaterOrEqual(t, got.Value, target)

		// Minimality: nothing sufficient is cheaper.
		for _, r := range records {
			if r.Value >= target {
				assert.LessOrEqual(t, got.Value, r.Value)
			}
		}
	}

	got, err := ForAmount(records, 1001)
	require.NoError(t, err)
	assert.Nil(t, got, "target above max value must not select")
}

func TestForAmountNegativeTarget(t *testing.T) {
	_, err := ForAmount([]*domain.UnspentRecord{rec("a", 1)}, -1)
	assert.ErrorIs(t, err, ErrNegativeTarget)
}

func TestPairTransparent(t *testing.T) {
	tests := []struct {
		name        string
		records     []*domain.UnspentRecord
		spendTarget int64
		feeTarget   int64
		wantSpend   string
		wantFee     string
		wantNil     bool
	}{
		{
			name:        "largest covers spend, another covers fee",
			records:     []*domain.UnspentRecord{rec("small", 100), rec("mid", 2_000), rec("big", 50_000)},
			spendTarget: 10_000,
			feeTarget:   1_000,
			wantSpend:   "big",
			wantFee:     "mid",
		},
		{
			name:        "fee record too small",
			records:     []*domain.UnspentRecord{rec("big", 50_000), rec("tiny", 1)},
			spendTarget: 10_000,
			feeTarget:   1_000,
			wantNil:     true,
		},
		{
			name:        "spend uncoverable",
			records:     []*domain.UnspentRecord{rec("a", 10), rec("b", 20)},
			spendTarget: 1_000,
			feeTarget:   1,
			wantNil:     true,
		},
		{
			name:        "single record cannot pair",
			records:     []*domain.UnspentRecord{rec("a", 1_000_000)},
			spendTarget: 1,
			feeTarget:   1,
			wantNil:     true,
		},
		{
			name:        "duplicate identity rejected",
			records:     []*domain.UnspentRecord{rec("dup", 50_000), rec("dup", 50_000)},
			spendTarget: 1_000,
			feeTarget:   1_000,
			wantNil:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pair(tt.records, tt.spendTarget, tt.feeTarget)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantSpend, got.Spend.ID)
			assert.Equal(t, tt.wantFee, got.Fee.ID)
			assert.True(t, got.Spend.Distinct(got.Fee))
		})
	}
}

func TestPairOpaquePath(t *testing.T) {
	t.Run("two opaque records pair on distinctness alone", func(t *testing.T) {
		records := []*domain.UnspentRecord{opaque("o1"), opaque("o2")}

		got, err := Pair(records, 1, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Spend.Distinct(got.Fee))
	})

	t.Run("large spend target still accepted unverified", func(t *testing.T) {
		// Opaque amounts cannot be checked, so the pair is returned even for
		// a target far above the sentinel. The eventual on-chain spend is
		// what verifies it; rejecting here would strand opaque balances.
		records := []*domain.UnspentRecord{opaque("o1"), opaque("o2")}

		got, err := Pair(records, 2_000_000, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Spend.Distinct(got.Fee))
	})

	t.Run("mixed set takes opaque path", func(t *testing.T) {
		records := []*domain.UnspentRecord{opaque("o1"), rec("t", 10)}

		got, err := Pair(records, 1_000_000, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "o1", got.Spend.ID)
		assert.Equal(t, "t", got.Fee.ID)
	})

	t.Run("duplicate opaque identity fails", func(t *testing.T) {
		records := []*domain.UnspentRecord{opaque("same"), opaque("same")}

		got, err := Pair(records, 1, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("single opaque record fails", func(t *testing.T) {
		got, err := Pair([]*domain.UnspentRecord{opaque("o1")}, 1, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPairNegativeTargets(t *testing.T) {
	records := []*domain.UnspentRecord{rec("a", 10), rec("b", 10)}

	_, err := Pair(records, -1, 0)
	assert.ErrorIs(t, err, ErrNegativeTarget)

	_, err = Pair(records, 0, -1)
	assert.ErrorIs(t, err, ErrNegativeTarget)
}

func TestPairUnknownIdentitiesConservativelyDistinct(t *testing.T) {
	records := []*domain.UnspentRecord{
		{ID: "", Value: 10_000},
		{ID: "", Value: 10_000},
	}

	got, err := Pair(records, 100, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Spend.Distinct(got.Fee))
}
