package affiliates

import (
	"fmt"

	"solpay/crypto"
)

const (
	AffiliateDiscriminator       = AffiliateSeedTag
	AffiliateDataVersion   uint8 = 0

	// AffiliateRecordSize is the fixed slot size of an affiliate record.
	AffiliateRecordSize = (4 + len(AffiliateDiscriminator)) +
		1 + 1 +
		3*crypto.PublicKeyLength +
		4 + // total redeemed
		8 // created at
)

// AffiliateRecord enrolls one affiliate in one project.
type AffiliateRecord struct {
	Discriminator   string           `json:"discriminator"`
	Initialized     bool             `json:"initialized"`
	DataVersion     uint8            `json:"dataVersion"`
	AffiliateKey    crypto.PublicKey `json:"affiliateKey"`
	ProjectOwnerKey crypto.PublicKey `json:"projectOwnerKey"`
	CampaignID      crypto.PublicKey `json:"campaignId"`
	TotalRedeemed   uint32           `json:"totalRedeemed"`
	CreatedAt       int64            `json:"createdAt"`
}

func (a *AffiliateRecord) Encode() ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil affiliate record", ErrInvalidAccountData)
	}
	enc := newEncoder(AffiliateRecordSize)
	enc.str(a.Discriminator)
	enc.boolean(a.Initialized)
	enc.u8(a.DataVersion)
	enc.key(a.AffiliateKey)
	enc.key(a.ProjectOwnerKey)
	enc.key(a.CampaignID)
	enc.u32(a.TotalRedeemed)
	enc.i64(a.CreatedAt)
	return enc.padded(AffiliateRecordSize)
}

func DecodeAffiliate(data []byte) (*AffiliateRecord, error) {
	if len(data) == 0 || isZeroed(data) {
		return &AffiliateRecord{}, nil
	}
	if len(data) != AffiliateRecordSize {
		return nil, fmt.Errorf("%w: affiliate slot has %d bytes, want %d", ErrInvalidDataLength, len(data), AffiliateRecordSize)
	}
	dec := newDecoder(data)
	rec := &AffiliateRecord{
		Discriminator:   dec.str(),
		Initialized:     dec.boolean(),
		DataVersion:     dec.u8(),
		AffiliateKey:    dec.key(),
		ProjectOwnerKey: dec.key(),
		CampaignID:      dec.key(),
		TotalRedeemed:   dec.u32(),
		CreatedAt:       dec.i64(),
	}
	if dec.err != nil {
		return nil, fmt.Errorf("%w: affiliate: %v", ErrInvalidAccountData, dec.err)
	}
	return rec, nil
}

func LoadAffiliate(data []byte) (*AffiliateRecord, bool, error) {
	rec, err := DecodeAffiliate(data)
	if err != nil {
		return nil, false, err
	}
	if !rec.Initialized {
		return nil, false, nil
	}
	if rec.Discriminator != AffiliateDiscriminator {
		return nil, false, fmt.Errorf("%w: discriminator %q", ErrInvalidAccountData, rec.Discriminator)
	}
	return rec, true, nil
}
