package affiliates

import (
	"fmt"

	"solpay/observability/metrics"
)

// closeProject zeroes the project slot and returns its whole balance to the
// project owner.
//
// Accounts: admin signer, project slot (writable), owner destination (writable).
func (inv *invocation) closeProject(cmd *CloseProject) error {
	metas, err := inv.accounts.takeN(3)
	if err != nil {
		return err
	}
	admin, project, destination := metas[0], metas[1], metas[2]

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
	if destination.Key != rec.OwnerKey {
		return fmt.Errorf("%w: %s is not the project owner", ErrIncorrectDestination, destination.Key)
	}

	amount, err := inv.closeSlot(project.Key, destination.Key)
	if err != nil {
		return err
	}
	inv.emit(ProjectClosedEvent(project.Key, rec, amount))
	inv.observe(func(m *metrics.AffiliatesMetrics) {
		m.ProjectClosed()
		m.AddLamports("project_close", amount)
	})
	return nil
}
