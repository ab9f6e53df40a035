package affiliates

import (
	"fmt"

	"solpay/crypto"
)

const (
	// ProjectDiscriminator tags initialized project slots.
	ProjectDiscriminator = ProjectSeedTag
	// ProjectDataVersion is written into every newly created project record.
	ProjectDataVersion uint8 = 0

	// ProjectRecordSize is the fixed slot size of a project record.
	ProjectRecordSize = (4 + len(ProjectDiscriminator)) +
		1 + // initialized
		1 + // data version
		crypto.PublicKeyLength + // owner
		crypto.PublicKeyLength + // campaign
		8 + // fee percentage
		1 + // target
		1 + // max affiliates
		1 + // affiliate count
		(4 + titleReservedBytes) +
		8 + // created at
		8 // updated at
)

// ProjectRecord is the campaign record kept per (owner, campaign) pair.
type ProjectRecord struct {
	Discriminator          string           `json:"discriminator"`
	Initialized            bool             `json:"initialized"`
	DataVersion            uint8            `json:"dataVersion"`
	OwnerKey               crypto.PublicKey `json:"ownerKey"`
	CampaignID             crypto.PublicKey `json:"campaignId"`
	AffiliateFeePercentage float64          `json:"affiliateFeePercentage"`
	AffiliateTarget        uint8            `json:"affiliateTarget"`
	MaxAffiliateCount      uint8            `json:"maxAffiliateCount"`
	AffiliateCount         uint8            `json:"affiliateCount"`
	Title                  Title            `json:"title"`
	CreatedAt              int64            `json:"createdAt"`
	UpdatedAt              int64            `json:"updatedAt"`
}

// Encode renders the record into a zero-padded slot of ProjectRecordSize bytes.
func (p *ProjectRecord) Encode() ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil project record", ErrInvalidAccountData)
	}
	if p.AffiliateCount > p.MaxAffiliateCount {
		return nil, fmt.Errorf("%w: count %d exceeds max %d", ErrProjectMaxAffiliateCountReached, p.AffiliateCount, p.MaxAffiliateCount)
	}
	if len(p.Title.value) > titleReservedBytes {
		return nil, ErrProjectTitleTooLong
	}
	enc := newEncoder(ProjectRecordSize)
	enc.str(p.Discriminator)
	enc.boolean(p.Initialized)
	enc.u8(p.DataVersion)
	enc.key(p.OwnerKey)
	enc.key(p.CampaignID)
	enc.f64(p.AffiliateFeePercentage)
	enc.u8(p.AffiliateTarget)
	enc.u8(p.MaxAffiliateCount)
	enc.u8(p.AffiliateCount)
	enc.str(p.Title.value)
	enc.i64(p.CreatedAt)
	enc.i64(p.UpdatedAt)
	return enc.padded(ProjectRecordSize)
}

// DecodeProject parses a project slot. Empty or zero-filled slots decode to an
// uninitialized record without error; trailing padding is ignored.
func DecodeProject(data []byte) (*ProjectRecord, error) {
	if len(data) == 0 || isZeroed(data) {
		return &ProjectRecord{}, nil
	}
	if len(data) != ProjectRecordSize {
		return nil, fmt.Errorf("%w: project slot has %d bytes, want %d", ErrInvalidDataLength, len(data), ProjectRecordSize)
	}
	dec := newDecoder(data)
	rec := &ProjectRecord{
		Discriminator:          dec.str(),
		Initialized:            dec.boolean(),
		DataVersion:            dec.u8(),
		OwnerKey:               dec.key(),
		CampaignID:             dec.key(),
		AffiliateFeePercentage: dec.f64(),
		AffiliateTarget:        dec.u8(),
		MaxAffiliateCount:      dec.u8(),
		AffiliateCount:         dec.u8(),
	}
	title := dec.str()
	rec.CreatedAt = dec.i64()
	rec.UpdatedAt = dec.i64()
	if dec.err != nil {
		return nil, fmt.Errorf("%w: project: %v", ErrInvalidAccountData, dec.err)
	}
	if len(title) > titleReservedBytes {
		return nil, fmt.Errorf("%w: project title exceeds reserved width", ErrInvalidAccountData)
	}
	rec.Title = Title{value: title}
	return rec, nil
}

// LoadProject decodes a slot and reports whether it holds an initialized
// project record.
func LoadProject(data []byte) (*ProjectRecord, bool, error) {
	rec, err := DecodeProject(data)
	if err != nil {
		return nil, false, err
	}
	if !rec.Initialized {
		return nil, false, nil
	}
	if rec.Discriminator != ProjectDiscriminator {
		return nil, false, fmt.Errorf("%w: discriminator %q", ErrInvalidAccountData, rec.Discriminator)
	}
	return rec, true, nil
}
