package domain

// RawRecord is a wallet-supplied record value in whatever shape the wallet
// emits it. Shapes vary between providers, so fields are discovered by key
// rather than declared up front; the record package normalizes them.
type RawRecord map[string]interface{}

// OpaqueSentinelValue is the spendable-amount estimate assigned to records
// whose amount is hidden behind a ciphertext payload: "non-zero, unknown".
const OpaqueSentinelValue = int64(1)

// UnspentRecord is a classified, not-yet-spent record projected from a
// RawRecord. It is computed fresh on every selection call and never cached.
type UnspentRecord struct {
	// ID is a stable identity for double-spend checks: an explicit id,
	// a commitment, a ciphertext prefix, or an owner/data composite.
	ID string

	// Value is the spendable amount in base units, or OpaqueSentinelValue
	// when the amount is hidden.
	Value int64

	// Opaque marks records whose true amount cannot be read.
	Opaque bool

	// Raw is the original wallet record, kept so callers can hand the
	// selected record back to a transaction builder unchanged.
	Raw RawRecord
}

// Distinct reports whether two records are safe to spend together.
// Records with differing identities are distinct; two records whose
// identities are both unknown are conservatively treated as distinct
// because they cannot be proven to be the same record.
func (r *UnspentRecord) Distinct(other *UnspentRecord) bool {
	if r == nil || other == nil {
		return false
	}
	if r.ID == "" && other.ID == "" {
		return true
	}
	return r.ID != other.ID
}
