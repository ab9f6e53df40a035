package affiliates

import (
	"fmt"

	"solpay/crypto"
)

// CommandTag is the leading byte of every command payload.
type CommandTag uint8

const (
	TagRegisterProject CommandTag = iota
	TagUpdateProject
	TagCloseProject
	TagRegisterAffiliate
	TagRedeemReward
	TagCloseAffiliateAccount
)

func (t CommandTag) String() string {
	switch t {
	case TagRegisterProject:
		return "register_project"
	case TagUpdateProject:
		return "update_project"
	case TagCloseProject:
		return "close_project"
	case TagRegisterAffiliate:
		return "register_affiliate"
	case TagRedeemReward:
		return "redeem_reward"
	case TagCloseAffiliateAccount:
		return "close_affiliate_account"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Command is one of the six program commands. The interface is sealed: the
// unexported methods keep the variant set closed, and dispatch forces every
// handler to cover each variant.
type Command interface {
	Tag() CommandTag
	encodePayload(*encoder)
	dispatch(commandHandler) error
}

type commandHandler interface {
	registerProject(*RegisterProject) error
	updateProject(*UpdateProject) error
	closeProject(*CloseProject) error
	registerAffiliate(*RegisterAffiliate) error
	redeemReward(*RedeemReward) error
	closeAffiliateAccount(*CloseAffiliateAccount) error
}

// ProjectTerms are the editable economics and metadata of a project.
type ProjectTerms struct {
	AffiliateFeePercentage float64
	AffiliateTarget        uint8
	MaxAffiliateCount      uint8
	Title                  string
}

func (t ProjectTerms) encode(enc *encoder) {
	enc.f64(t.AffiliateFeePercentage)
	enc.u8(t.AffiliateTarget)
	enc.u8(t.MaxAffiliateCount)
	enc.str(t.Title)
}

func decodeTerms(dec *decoder) ProjectTerms {
	return ProjectTerms{
		AffiliateFeePercentage: dec.f64(),
		AffiliateTarget:        dec.u8(),
		MaxAffiliateCount:      dec.u8(),
		Title:                  dec.str(),
	}
}

// RegisterProject creates the signer's project for a campaign.
type RegisterProject struct {
	CampaignID crypto.PublicKey
	ProjectTerms
}

// UpdateProject rewrites a project's terms. Admin only.
type UpdateProject struct {
	ProjectOwner crypto.PublicKey
	CampaignID   crypto.PublicKey
	ProjectTerms
}

// CloseProject drains and zeroes a project slot. Admin only.
type CloseProject struct {
	ProjectOwner crypto.PublicKey
	CampaignID   crypto.PublicKey
}

// RegisterAffiliate enrolls the signer in a project.
type RegisterAffiliate struct {
	ProjectOwner crypto.PublicKey
	CampaignID   crypto.PublicKey
}

// RedeemReward pays the project's target out of the signer's affiliate slot.
type RedeemReward struct {
	ProjectOwner crypto.PublicKey
	CampaignID   crypto.PublicKey
}

// CloseAffiliateAccount drains an affiliate slot into the treasury. Admin only.
type CloseAffiliateAccount struct {
	Affiliate    crypto.PublicKey
	ProjectOwner crypto.PublicKey
	CampaignID   crypto.PublicKey
}

func (*RegisterProject) Tag() CommandTag       { return TagRegisterProject }
func (*UpdateProject) Tag() CommandTag         { return TagUpdateProject }
func (*CloseProject) Tag() CommandTag          { return TagCloseProject }
func (*RegisterAffiliate) Tag() CommandTag     { return TagRegisterAffiliate }
func (*RedeemReward) Tag() CommandTag          { return TagRedeemReward }
func (*CloseAffiliateAccount) Tag() CommandTag { return TagCloseAffiliateAccount }

func (c *RegisterProject) encodePayload(enc *encoder) {
	enc.key(c.CampaignID)
	c.ProjectTerms.encode(enc)
}

func (c *UpdateProject) encodePayload(enc *encoder) {
	enc.key(c.ProjectOwner)
	enc.key(c.CampaignID)
	c.ProjectTerms.encode(enc)
}

func (c *CloseProject) encodePayload(enc *encoder) {
	enc.key(c.ProjectOwner)
	enc.key(c.CampaignID)
}

func (c *RegisterAffiliate) encodePayload(enc *encoder) {
	enc.key(c.ProjectOwner)
	enc.key(c.CampaignID)
}

func (c *RedeemReward) encodePayload(enc *encoder) {
	enc.key(c.ProjectOwner)
	enc.key(c.CampaignID)
}

func (c *CloseAffiliateAccount) encodePayload(enc *encoder) {
	enc.key(c.Affiliate)
	enc.key(c.ProjectOwner)
	enc.key(c.CampaignID)
}

func (c *RegisterProject) dispatch(h commandHandler) error   { return h.registerProject(c) }
func (c *UpdateProject) dispatch(h commandHandler) error     { return h.updateProject(c) }
func (c *CloseProject) dispatch(h commandHandler) error      { return h.closeProject(c) }
func (c *RegisterAffiliate) dispatch(h commandHandler) error { return h.registerAffiliate(c) }
func (c *RedeemReward) dispatch(h commandHandler) error      { return h.redeemReward(c) }
func (c *CloseAffiliateAccount) dispatch(h commandHandler) error {
	return h.closeAffiliateAccount(c)
}

// EncodeCommand renders cmd into its wire form.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrInvalidCommand)
	}
	enc := newEncoder(1 + 3*crypto.PublicKeyLength + 14 + titleReservedBytes)
	enc.u8(uint8(cmd.Tag()))
	cmd.encodePayload(enc)
	return enc.buf, nil
}

// DecodeCommand parses a wire payload. Unknown tags, truncated payloads and
// trailing bytes are all rejected with ErrInvalidCommand.
func DecodeCommand(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidCommand)
	}
	dec := newDecoder(data[1:])
	var cmd Command
	switch tag := CommandTag(data[0]); tag {
	case TagRegisterProject:
		cmd = &RegisterProject{CampaignID: dec.key(), ProjectTerms: decodeTerms(dec)}
	case TagUpdateProject:
		cmd = &UpdateProject{ProjectOwner: dec.key(), CampaignID: dec.key(), ProjectTerms: decodeTerms(dec)}
	case TagCloseProject:
		cmd = &CloseProject{ProjectOwner: dec.key(), CampaignID: dec.key()}
	case TagRegisterAffiliate:
		cmd = &RegisterAffiliate{ProjectOwner: dec.key(), CampaignID: dec.key()}
	case TagRedeemReward:
		cmd = &RedeemReward{ProjectOwner: dec.key(), CampaignID: dec.key()}
	case TagCloseAffiliateAccount:
		cmd = &CloseAffiliateAccount{Affiliate: dec.key(), ProjectOwner: dec.key(), CampaignID: dec.key()}
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrInvalidCommand, uint8(tag))
	}
	if dec.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd.Tag(), dec.err)
	}
	if n := dec.remaining(); n != 0 {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrInvalidCommand, cmd.Tag(), n)
	}
	return cmd, nil
}
