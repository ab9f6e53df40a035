package ledger

import "math"

// AccountStorageOverhead is charged on top of the data length of every account.
const AccountStorageOverhead = 128

// Rent prices the reserve an account must hold to remain allocated.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent mirrors the parameters of the public Solana clusters.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2.0}
}

// MinimumBalance returns the reserve required for an account with space bytes
// of data. The result saturates at math.MaxUint64.
func (r Rent) MinimumBalance(space int) uint64 {
	if space < 0 {
		space = 0
	}
	bytes := uint64(AccountStorageOverhead) + uint64(space)
	if r.LamportsPerByteYear != 0 && bytes > math.MaxUint64/r.LamportsPerByteYear {
		return math.MaxUint64
	}
	perYear := bytes * r.LamportsPerByteYear
	threshold := r.ExemptionThreshold
	if threshold <= 0 {
		return perYear
	}
	total := float64(perYear) * threshold
	if total >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(total)
}

// IsExempt reports whether balance covers the reserve for space bytes.
func (r Rent) IsExempt(balance uint64, space int) bool {
	return balance >= r.MinimumBalance(space)
}
