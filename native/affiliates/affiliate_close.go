package affiliates

import (
	"fmt"

	"solpay/crypto"
	"solpay/observability/metrics"
)

// closeAffiliateAccount drains an affiliate slot into the treasury and
// releases its place in the project. When the project has been closed, or
// re-registered after the affiliate joined, there is no seat to release.
//
// Accounts: admin signer, affiliate slot (writable), project slot (writable),
// treasury (writable).
func (inv *invocation) closeAffiliateAccount(cmd *CloseAffiliateAccount) error {
	metas, err := inv.accounts.takeN(4)
	if err != nil {
		return err
	}
	admin, affiliate, project, treasury := metas[0], metas[1], metas[2], metas[3]

	if err := requireSigner(admin); err != nil {
		return err
	}
	if err := requireAdmin(admin, inv.cfg.Admin); err != nil {
		return err
	}
	if err := requireDerived(affiliate, inv.cfg.ProgramID, AffiliateSeedTag, cmd.Affiliate, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	if err := requireDerived(project, inv.cfg.ProgramID, ProjectSeedTag, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	if err := requireTreasury(treasury, inv.cfg.Treasury); err != nil {
		return err
	}
	_, member, err := inv.loadAffiliate(affiliate.Key)
	if err != nil {
		return err
	}
	proj, err := inv.enrolledProject(project.Key, member)
	if err != nil {
		return err
	}
	if proj != nil && proj.AffiliateCount == 0 {
		return fmt.Errorf("%w: project %s has no affiliates", ErrArithmeticUnderflow, project.Key)
	}

	amount, err := inv.closeSlot(affiliate.Key, treasury.Key)
	if err != nil {
		return err
	}
	remaining := -1
	if proj != nil {
		_, proj, err = inv.loadProject(project.Key)
		if err != nil {
			return err
		}
		next, err := decrementCount(proj.AffiliateCount)
		if err != nil {
			return err
		}
		proj.AffiliateCount = next
		if err := inv.storeProject(project.Key, proj); err != nil {
			return err
		}
		remaining = int(next)
	}
	inv.emit(AffiliateClosedEvent(affiliate.Key, member, amount, remaining))
	inv.observe(func(m *metrics.AffiliatesMetrics) {
		m.AffiliateClosed()
		m.AddLamports("affiliate_close", amount)
	})
	return nil
}

// enrolledProject returns the project record whose count includes member, or
// nil when the affiliate outlived its project. A closed slot may since have
// been recreated by a plain transfer (system-owned, no data) or hold a zeroed
// record. A project registered after the affiliate joined is a later
// generation that never counted it.
func (inv *invocation) enrolledProject(key crypto.PublicKey, member *AffiliateRecord) (*ProjectRecord, error) {
	account, ok, err := inv.ledger.Account(key)
	if err != nil {
		return nil, err
	}
	if !ok || (account.Owner == crypto.SystemProgramID && len(account.Data) == 0) {
		return nil, nil
	}
	if err := requireProgramOwned(key, account, inv.cfg.ProgramID); err != nil {
		return nil, err
	}
	proj, ok, err := LoadProject(account.Data)
	if err != nil {
		return nil, err
	}
	if !ok || member.CreatedAt < proj.CreatedAt {
		return nil, nil
	}
	return proj, nil
}
