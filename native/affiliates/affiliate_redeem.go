package affiliates

import (
	"fmt"
	"math"

	"solpay/observability/metrics"
)

// redeemReward pays the project's reward target out of the signer's
// affiliate slot. Each call is checked against the balance present now, so
// an affiliate can redeem again whenever the slot is refilled.
//
// Accounts: signer (writable), affiliate slot (writable), project slot.
func (inv *invocation) redeemReward(cmd *RedeemReward) error {
	metas, err := inv.accounts.takeN(3)
	if err != nil {
		return err
	}
	signer, affiliate, project := metas[0], metas[1], metas[2]

	if err := requireSigner(signer); err != nil {
		return err
	}
	if err := requireDerived(affiliate, inv.cfg.ProgramID, AffiliateSeedTag, signer.Key, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	if err := requireDerived(project, inv.cfg.ProgramID, ProjectSeedTag, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	slot, member, err := inv.loadAffiliate(affiliate.Key)
	if err != nil {
		return err
	}
	_, proj, err := inv.loadProject(project.Key)
	if err != nil {
		return err
	}
	if inv.cfg.LinkagePolicy.mismatched(member.ProjectOwnerKey != proj.OwnerKey, member.CampaignID != proj.CampaignID) {
		return ErrRewardRedeemMismatchedAccounts
	}
	amount, err := rewardLamports(proj.AffiliateTarget)
	if err != nil {
		return err
	}
	// The reserve stays behind so the slot remains allocated.
	reserve := inv.ledger.MinimumBalance(len(slot.Data))
	if slot.Balance < reserve || slot.Balance-reserve < amount {
		return fmt.Errorf("%w: balance %d, reserve %d, target %d", ErrAffiliateAccountBalanceNotEnough, slot.Balance, reserve, amount)
	}
	if uint64(member.TotalRedeemed)+uint64(proj.AffiliateTarget) > math.MaxUint32 {
		return ErrArithmeticOverflow
	}

	if err := inv.ledger.Debit(affiliate.Key, amount); err != nil {
		return err
	}
	if err := inv.ledger.Credit(signer.Key, amount); err != nil {
		return err
	}
	member.TotalRedeemed += uint32(proj.AffiliateTarget)
	if err := inv.storeAffiliate(affiliate.Key, member); err != nil {
		return err
	}
	inv.emit(RewardRedeemedEvent(affiliate.Key, member, amount))
	inv.observe(func(m *metrics.AffiliatesMetrics) { m.AddLamports("reward", amount) })
	return nil
}
