package affiliates

import "solpay/observability/metrics"

// registerProject creates the signer's project record for a campaign.
//
// Accounts: signer (writable), project slot (writable), system program.
func (inv *invocation) registerProject(cmd *RegisterProject) error {
	metas, err := inv.accounts.takeN(3)
	if err != nil {
		return err
	}
	signer, project, system := metas[0], metas[1], metas[2]

	if err := requireSigner(signer); err != nil {
		return err
	}
	if err := requireSystemProgram(system); err != nil {
		return err
	}
	if err := requireDerived(project, inv.cfg.ProgramID, ProjectSeedTag, signer.Key, cmd.CampaignID); err != nil {
		return err
	}
	title, err := cmd.ProjectTerms.validate()
	if err != nil {
		return err
	}
	allocate, err := inv.prepareSlot(project.Key, projectInitialized)
	if err != nil {
		return err
	}

	if allocate {
		reserve := inv.ledger.MinimumBalance(ProjectRecordSize)
		if err := inv.ledger.CreateAccount(signer.Key, project.Key, ProjectRecordSize, reserve, inv.cfg.ProgramID); err != nil {
			return err
		}
	}
	now := inv.now()
	rec := &ProjectRecord{
		Discriminator:          ProjectDiscriminator,
		Initialized:            true,
		DataVersion:            ProjectDataVersion,
		OwnerKey:               signer.Key,
		CampaignID:             cmd.CampaignID,
		AffiliateFeePercentage: cmd.AffiliateFeePercentage,
		AffiliateTarget:        cmd.AffiliateTarget,
		MaxAffiliateCount:      cmd.MaxAffiliateCount,
		AffiliateCount:         0,
		Title:                  title,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := inv.storeProject(project.Key, rec); err != nil {
		return err
	}
	inv.emit(ProjectRegisteredEvent(project.Key, rec))
	inv.observe((*metrics.AffiliatesMetrics).ProjectOpened)
	return nil
}
