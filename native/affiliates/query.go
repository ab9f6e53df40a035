package affiliates

import (
	"fmt"

	"solpay/core/types"
	"solpay/crypto"
)

// Reader exposes committed ledger state to queries.
type Reader interface {
	Account(key crypto.PublicKey) (*types.Account, bool, error)
	MinimumBalance(space int) uint64
}

type ProjectView struct {
	Address crypto.PublicKey `json:"address"`
	Balance uint64           `json:"balance"`
	Record  *ProjectRecord   `json:"record"`
}

type AffiliateView struct {
	Address crypto.PublicKey `json:"address"`
	Balance uint64           `json:"balance"`
	Record  *AffiliateRecord `json:"record"`
	// Redeemable is the balance available above the slot's reserve.
	Redeemable uint64 `json:"redeemable"`
	// CanRedeem reports whether Redeemable covers the project's target.
	CanRedeem bool `json:"canRedeem"`
}

func readProgramSlot(r Reader, program, address crypto.PublicKey) (*types.Account, bool, error) {
	account, ok, err := r.Account(address)
	if err != nil || !ok {
		return nil, false, err
	}
	if account.Owner != program {
		return nil, false, fmt.Errorf("%w: %s", ErrIllegalOwner, address)
	}
	return account, true, nil
}

// GetProject loads the project for (owner, campaign). ok is false when no
// initialized project exists.
func GetProject(r Reader, program, owner, campaign crypto.PublicKey) (*ProjectView, bool, error) {
	address, _, err := ProjectAddress(program, owner, campaign)
	if err != nil {
		return nil, false, err
	}
	account, ok, err := readProgramSlot(r, program, address)
	if err != nil || !ok {
		return nil, false, err
	}
	rec, ok, err := LoadProject(account.Data)
	if err != nil || !ok {
		return nil, false, err
	}
	return &ProjectView{Address: address, Balance: account.Balance, Record: rec}, true, nil
}

// GetAffiliate loads an enrollment and computes how much of its balance is
// currently redeemable.
func GetAffiliate(r Reader, program, affiliate, owner, campaign crypto.PublicKey) (*AffiliateView, bool, error) {
	address, _, err := AffiliateAddress(program, affiliate, owner, campaign)
	if err != nil {
		return nil, false, err
	}
	account, ok, err := readProgramSlot(r, program, address)
	if err != nil || !ok {
		return nil, false, err
	}
	rec, ok, err := LoadAffiliate(account.Data)
	if err != nil || !ok {
		return nil, false, err
	}
	view := &AffiliateView{Address: address, Balance: account.Balance, Record: rec}
	if reserve := r.MinimumBalance(len(account.Data)); account.Balance > reserve {
		view.Redeemable = account.Balance - reserve
	}
	if project, ok, err := GetProject(r, program, owner, campaign); err == nil && ok {
		if amount, err := rewardLamports(project.Record.AffiliateTarget); err == nil {
			view.CanRedeem = view.Redeemable >= amount
		}
	}
	return view, true, nil
}
