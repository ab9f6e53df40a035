// Package affiliates implements the affiliate marketing program: campaign
// ("project") records owned by a campaign owner, per-affiliate enrollment
// records, and the six commands that create, update, redeem against and
// close them.
//
// Records live in program-owned ledger accounts whose addresses are derived
// from the record's identifying keys, so a caller can never substitute one
// record's slot for another's. Every command runs inside a single ledger
// transaction and either applies completely or not at all.
package affiliates
