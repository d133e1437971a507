// Package record normalizes wallet-supplied record values into a single
// spendable representation. Wallets emit records in several ad hoc shapes;
// classification is the only place that knows about them, so selection and
// everything downstream see one uniform type.
package record

import (
	"encoding/json"
	"strings"

	"veilmarket/internal/domain"
)

const (
	// ciphertextTag marks an encrypted record payload.
	ciphertextTag = "record1"

	// ciphertextMinLen is the minimum length of a real ciphertext; shorter
	// strings with the tag are treated as malformed, not opaque.
	ciphertextMinLen = 100

	// idPrefixLen is how much of a ciphertext or serialized payload is used
	// as a derived identity.
	idPrefixLen = 50
)

// Classify normalizes one raw wallet record into an UnspentRecord.
// It returns nil when the record is structurally unrecognized, explicitly
// marked spent, or carries no spendable value. Malformed records are
// dropped, never errors: bad wallet data must not break a selection flow.
func Classify(raw domain.RawRecord) *domain.UnspentRecord {
	if len(raw) == 0 {
		return nil
	}
	if isSpent(raw) {
		return nil
	}

	id := extractIdentity(raw)
	if id == "" {
		return nil
	}

	if ct := ciphertextOf(raw); ct != "" {
		// Encrypted payload: the amount is unreadable but provably non-zero
		// (zero-value records are not emitted on chain).
		return &domain.UnspentRecord{
			ID:     id,
			Value:  domain.OpaqueSentinelValue,
			Opaque: true,
			Raw:    raw,
		}
	}

	amount := extractAmount(raw)
	if amount <= 0 {
		return nil
	}

	return &domain.UnspentRecord{
		ID:    id,
		Value: amount,
		Raw:   raw,
	}
}

// ClassifyAll normalizes a record list, dropping everything Classify
// rejects. Order of the surviving records follows the input.
func ClassifyAll(raws []domain.RawRecord) []*domain.UnspentRecord {
	out := make([]*domain.UnspentRecord, 0, len(raws))
	for _, raw := range raws {
		if r := Classify(raw); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func isSpent(raw domain.RawRecord) bool {
	switch v := raw["spent"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// extractIdentity derives a stable identity, in order of preference:
// explicit id, explicit commitment, ciphertext prefix, owner/data composite.
func extractIdentity(raw domain.RawRecord) string {
	if id := stringField(raw, "id"); id != "" {
		return id
	}
	if cm := stringField(raw, "commitment"); cm != "" {
		return cm
	}
	if ct := ciphertextOf(raw); ct != "" {
		return prefix(ct, idPrefixLen)
	}

	owner := stringField(raw, "owner")
	data, ok := raw["data"]
	if owner == "" || !ok {
		return ""
	}
	serialized := serializeData(data)
	if serialized == "" {
		return ""
	}
	return owner + "|" + prefix(serialized, idPrefixLen)
}

// ciphertextOf returns the record's encrypted payload if it has the
// ciphertext shape, else "".
func ciphertextOf(raw domain.RawRecord) string {
	for _, key := range []string{"ciphertext", "recordCiphertext", "record"} {
		s := stringField(raw, key)
		if strings.HasPrefix(s, ciphertextTag) && len(s) > ciphertextMinLen {
			return s
		}
	}
	return ""
}

// extractAmount searches the nested data field for the microcredits
// attribute and parses it. Returns 0 when absent or unparsable.
func extractAmount(raw domain.RawRecord) int64 {
	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return 0
	}

	for _, key := range []string{"microcredits", "Microcredits", "amount", "Amount"} {
		v, ok := data[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if n, ok := ParseAmountLiteral(val); ok {
				return n
			}
		case float64:
			if val == float64(int64(val)) {
				return int64(val)
			}
		case int:
			return int64(val)
		case int64:
			return val
		case json.Number:
			if n, ok := ParseAmountLiteral(val.String()); ok {
				return n
			}
		}
		return 0
	}
	return 0
}

func stringField(raw domain.RawRecord, key string) string {
	s, _ := raw[key].(string)
	return s
}

func serializeData(data interface{}) string {
	if s, ok := data.(string); ok {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
