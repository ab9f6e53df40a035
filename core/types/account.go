package types

import "solpay/crypto"

// Account is the ledger view of a single key: the program that owns it, its
// lamport balance and the raw data the owner has stored in it.
type Account struct {
	Owner   crypto.PublicKey `json:"owner"`
	Balance uint64           `json:"balance"`
	Data    []byte           `json:"data,omitempty"`
}

// Clone returns a deep copy so callers can mutate it without touching state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := &Account{Owner: a.Owner, Balance: a.Balance}
	if len(a.Data) > 0 {
		out.Data = append([]byte(nil), a.Data...)
	}
	return out
}

// IsEmpty reports whether the account holds no lamports and no data. Empty
// accounts are purged on commit.
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Balance == 0 && len(a.Data) == 0)
}
