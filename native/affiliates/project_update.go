package affiliates

import "fmt"

// updateProject rewrites a project's terms. Only the administrator may call
// it; the project owner cannot.
//
// Accounts: admin signer, project slot (writable).
func (inv *invocation) updateProject(cmd *UpdateProject) error {
	metas, err := inv.accounts.takeN(2)
	if err != nil {
		return err
	}
	admin, project := metas[0], metas[1]

	if err := requireSigner(admin); err != nil {
		return err
	}
	if err := requireAdmin(admin, inv.cfg.Admin); err != nil {
		return err
	}
	if err := requireDerived(project, inv.cfg.ProgramID, ProjectSeedTag, cmd.ProjectOwner, cmd.CampaignID); err != nil {
		return err
	}
	_, rec, err := inv.loadProject(project.Key)
	if err != nil {
		return err
	}
	title, err := cmd.ProjectTerms.validate()
	if err != nil {
		return err
	}
	if cmd.MaxAffiliateCount < rec.AffiliateCount {
		return fmt.Errorf("%w: max %d, current %d", ErrMaxBelowCurrentCount, cmd.MaxAffiliateCount, rec.AffiliateCount)
	}

	rec.AffiliateFeePercentage = cmd.AffiliateFeePercentage
	rec.AffiliateTarget = cmd.AffiliateTarget
	rec.MaxAffiliateCount = cmd.MaxAffiliateCount
	rec.Title = title
	rec.UpdatedAt = inv.now()
	if err := inv.storeProject(project.Key, rec); err != nil {
		return err
	}
	inv.emit(ProjectUpdatedEvent(project.Key, rec))
	return nil
}
