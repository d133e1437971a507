package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veilmarket/internal/domain"
)

// fakeCiphertext builds a payload long enough to pass the ciphertext
// length threshold.
func fakeCiphertext(seed string) string {
	return ciphertextTag + seed + strings.Repeat("q", ciphertextMinLen)
}

func TestClassifyTransparent(t *testing.T) {
	suffixes := []string{"", "u64", "u64.private", "u64.public", "u128"}
	for _, suffix := range suffixes {
		t.Run("suffix_"+suffix, func(t *testing.T) {
			raw := domain.RawRecord{
				"id":   "rec-1",
				"data": map[string]interface{}{"microcredits": "1500000" + suffix},
			}
			got := Classify(raw)
			require.NotNil(t, got)
			assert.Equal(t, "rec-1", got.ID)
			assert.Equal(t, int64(1_500_000), got.Value)
			assert.False(t, got.Opaque)
		})
	}
}

func TestClassifyAmountVariants(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		want int64
	}{
		{"capitalized key", map[string]interface{}{"Microcredits": "77u64"}, 77},
		{"amount key", map[string]interface{}{"amount": "123u64.private"}, 123},
		{"json number", map[string]interface{}{"microcredits": float64(500_000)}, 500_000},
		{"quoted literal", map[string]interface{}{"microcredits": `"9000u64"`}, 9000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(domain.RawRecord{"id": "x", "data": tt.data})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestClassifyOpaque(t *testing.T) {
	ct := fakeCiphertext("abc")
	raw := domain.RawRecord{"ciphertext": ct}

	got := Classify(raw)
	require.NotNil(t, got)
	assert.True(t, got.Opaque)
	assert.Equal(t, domain.OpaqueSentinelValue, got.Value)
	assert.Equal(t, ct[:idPrefixLen], got.ID)
}

func TestClassifyOpaqueAlternateKeys(t *testing.T) {
	for _, key := range []string{"recordCiphertext", "record"} {
		t.Run(key, func(t *testing.T) {
			got := Classify(domain.RawRecord{key: fakeCiphertext(key)})
			require.NotNil(t, got)
			assert.True(t, got.Opaque)
		})
	}
}

func TestClassifyShortCiphertextNotOpaque(t *testing.T) {
	// Tagged but below the length threshold: malformed, not opaque.
	got := Classify(domain.RawRecord{"ciphertext": ciphertextTag + "short"})
	assert.Nil(t, got)
}

func TestClassifyRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawRecord
	}{
		{"nil map", nil},
		{"empty map", domain.RawRecord{}},
		{"spent bool", domain.RawRecord{"id": "a", "spent": true, "data": map[string]interface{}{"microcredits": "5u64"}}},
		{"spent string", domain.RawRecord{"id": "a", "spent": "true", "data": map[string]interface{}{"microcredits": "5u64"}}},
		{"no identity", domain.RawRecord{"data": map[string]interface{}{"microcredits": "5u64"}}},
		{"zero amount", domain.RawRecord{"id": "a", "data": map[string]interface{}{"microcredits": "0u64"}}},
		{"unparsable amount", domain.RawRecord{"id": "a", "data": map[string]interface{}{"microcredits": "??"}}},
		{"no data", domain.RawRecord{"id": "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Classify(tt.raw))
		})
	}
}

func TestIdentityPreferenceOrder(t *testing.T) {
	ct := fakeCiphertext("z")

	t.Run("id wins over commitment", func(t *testing.T) {
		got := Classify(domain.RawRecord{
			"id":         "the-id",
			"commitment": "the-commitment",
			"data":       map[string]interface{}{"microcredits": "5u64"},
		})
		require.NotNil(t, got)
		assert.Equal(t, "the-id", got.ID)
	})

	t.Run("commitment wins over ciphertext", func(t *testing.T) {
		got := Classify(domain.RawRecord{
			"commitment": "the-commitment",
			"ciphertext": ct,
		})
		require.NotNil(t, got)
		assert.Equal(t, "the-commitment", got.ID)
	})

	t.Run("owner composite as last resort", func(t *testing.T) {
		got := Classify(domain.RawRecord{
			"owner": "addr1xyz",
			"data":  map[string]interface{}{"microcredits": "5u64"},
		})
		require.NotNil(t, got)
		assert.True(t, strings.HasPrefix(got.ID, "addr1xyz|"))
	})
}

func TestClassifyAll(t *testing.T) {
	raws := []domain.RawRecord{
		{"id": "a", "data": map[string]interface{}{"microcredits": "500000u64.private"}},
		{"id": "spent", "spent": true, "data": map[string]interface{}{"microcredits": "1u64"}},
		{"id": "zero", "data": map[string]interface{}{"microcredits": "0u64"}},
		{"ciphertext": fakeCiphertext("b")},
		{"garbage": 42},
	}

	got := ClassifyAll(raws)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, int64(500_000), got[0].Value)
	assert.True(t, got[1].Opaque)
}
