package affiliates

import (
	"fmt"

	"solpay/observability/metrics"
)

// registerAffiliate enrolls the signer in a project. The signer pays the
// registration fee to the treasury and funds the new slot's reserve.
//
// Accounts: signer (writable), affiliate slot (writable), project slot
// (writable), treasury (writable), system program.
func (inv *invocation) registerAffiliate(cmd *RegisterAffiliate) error {
	metas, err := inv.accounts.takeN(5)
	if err != nil {
		return err
	}
	signer, affiliate, project, treasury, system := metas[0], metas[1], metas[2], metas[3], metas[4]

	if err := requireSigner(signer); err != nil {
		return err
	}
	if err := requireSystemProgram(system); err != nil {
		return err
	}
	if err := requireDerived(affiliate, inv.cfg.ProgramID, AffiliateSeedTag, signer.Key, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	if err := requireDerived(project, inv.cfg.ProgramID, ProjectSeedTag, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	if err := requireTreasury(treasury, inv.cfg.Treasury); err != nil {
		return err
	}
	_, rec, err := inv.loadProject(project.Key)
	if err != nil {
		return err
	}
	if rec.AffiliateCount >= rec.MaxAffiliateCount {
		return fmt.Errorf("%w: %d of %d", ErrProjectMaxAffiliateCountReached, rec.AffiliateCount, rec.MaxAffiliateCount)
	}
	allocate, err := inv.prepareSlot(affiliate.Key, affiliateInitialized)
	if err != nil {
		return err
	}

	fee := inv.cfg.RegistrationFee
	if fee > 0 {
		if err := inv.ledger.Transfer(signer.Key, treasury.Key, fee); err != nil {
			return err
		}
	}
	if allocate {
		reserve := inv.ledger.MinimumBalance(AffiliateRecordSize)
		if err := inv.ledger.CreateAccount(signer.Key, affiliate.Key, AffiliateRecordSize, reserve, inv.cfg.ProgramID); err != nil {
			return err
		}
	}
	member := &AffiliateRecord{
		Discriminator:   AffiliateDiscriminator,
		Initialized:     true,
		DataVersion:     AffiliateDataVersion,
		AffiliateKey:    signer.Key,
		ProjectOwnerKey: cmd.ProjectOwner,
		CampaignID:      cmd.CampaignID,
		TotalRedeemed:   0,
		CreatedAt:       inv.now(),
	}
	if err := inv.storeAffiliate(affiliate.Key, member); err != nil {
		return err
	}

	// Re-read the project after the transfers above.
	_, rec, err = inv.loadProject(project.Key)
	if err != nil {
		return err
	}
	if rec.AffiliateCount >= rec.MaxAffiliateCount {
		return fmt.Errorf("%w: %d of %d", ErrProjectMaxAffiliateCountReached, rec.AffiliateCount, rec.MaxAffiliateCount)
	}
	next, err := incrementCount(rec.AffiliateCount)
	if err != nil {
		return err
	}
	rec.AffiliateCount = next
	if err := inv.storeProject(project.Key, rec); err != nil {
		return err
	}
	inv.emit(AffiliateRegisteredEvent(affiliate.Key, member, rec.AffiliateCount, fee))
	inv.observe(func(m *metrics.AffiliatesMetrics) {
		m.AffiliateOpened()
		m.AddLamports("registration_fee", fee)
	})
	return nil
}
