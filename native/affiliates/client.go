package affiliates

import (
	"solpay/core/types"
	"solpay/crypto"
)

// ProjectAddress derives the slot of the (owner, campaign) project.
func ProjectAddress(program, owner, campaign crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.Derive(ProjectSeedTag, [][]byte{owner[:], campaign[:]}, program)
}

// AffiliateAddress derives the slot of the (affiliate, owner, campaign)
// enrollment.
func AffiliateAddress(program, affiliate, owner, campaign crypto.PublicKey) (crypto.PublicKey, uint8, error) {
	return crypto.Derive(AffiliateSeedTag, [][]byte{affiliate[:], owner[:], campaign[:]}, program)
}

func buildInstruction(program crypto.PublicKey, cmd Command, accounts ...types.AccountMeta) (types.Instruction, error) {
	data, err := EncodeCommand(cmd)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{ProgramID: program, Accounts: accounts, Data: data}, nil
}

func signerMeta(key crypto.PublicKey, writable bool) types.AccountMeta {
	return types.AccountMeta{Key: key, IsSigner: true, IsWritable: writable}
}

func writableMeta(key crypto.PublicKey) types.AccountMeta {
	return types.AccountMeta{Key: key, IsWritable: true}
}

func readonlyMeta(key crypto.PublicKey) types.AccountMeta {
	return types.AccountMeta{Key: key}
}

// NewRegisterProjectInstruction registers owner's project for campaign.
func NewRegisterProjectInstruction(cfg Config, owner, campaign crypto.PublicKey, terms ProjectTerms) (types.Instruction, error) {
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&RegisterProject{CampaignID: campaign, ProjectTerms: terms},
		signerMeta(owner, true),
		writableMeta(project),
		readonlyMeta(crypto.SystemProgramID),
	)
}

// NewUpdateProjectInstruction must be signed by cfg.Admin.
func NewUpdateProjectInstruction(cfg Config, owner, campaign crypto.PublicKey, terms ProjectTerms) (types.Instruction, error) {
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&UpdateProject{ProjectOwner: owner, CampaignID: campaign, ProjectTerms: terms},
		signerMeta(cfg.Admin, false),
		writableMeta(project),
	)
}

// NewCloseProjectInstruction refunds the project slot to owner. It must be
// signed by cfg.Admin.
func NewCloseProjectInstruction(cfg Config, owner, campaign crypto.PublicKey) (types.Instruction, error) {
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&CloseProject{ProjectOwner: owner, CampaignID: campaign},
		signerMeta(cfg.Admin, false),
		writableMeta(project),
		writableMeta(owner),
	)
}

func NewRegisterAffiliateInstruction(cfg Config, affiliate, owner, campaign crypto.PublicKey) (types.Instruction, error) {
	member, _, err := AffiliateAddress(cfg.ProgramID, affiliate, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&RegisterAffiliate{ProjectOwner: owner, CampaignID: campaign},
		signerMeta(affiliate, true),
		writableMeta(member),
		writableMeta(project),
		writableMeta(cfg.Treasury),
		readonlyMeta(crypto.SystemProgramID),
	)
}

func NewRedeemRewardInstruction(cfg Config, affiliate, owner, campaign crypto.PublicKey) (types.Instruction, error) {
	member, _, err := AffiliateAddress(cfg.ProgramID, affiliate, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&RedeemReward{ProjectOwner: owner, CampaignID: campaign},
		signerMeta(affiliate, true),
		writableMeta(member),
		readonlyMeta(project),
	)
}

// NewCloseAffiliateAccountInstruction must be signed by cfg.Admin.
func NewCloseAffiliateAccountInstruction(cfg Config, affiliate, owner, campaign crypto.PublicKey) (types.Instruction, error) {
	member, _, err := AffiliateAddress(cfg.ProgramID, affiliate, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	project, _, err := ProjectAddress(cfg.ProgramID, owner, campaign)
	if err != nil {
		return types.Instruction{}, err
	}
	return buildInstruction(cfg.ProgramID,
		&CloseAffiliateAccount{Affiliate: affiliate, ProjectOwner: owner, CampaignID: campaign},
		signerMeta(cfg.Admin, false),
		writableMeta(member),
		writableMeta(project),
		writableMeta(cfg.Treasury),
	)
}
