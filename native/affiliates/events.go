package affiliates

import (
	"strconv"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/crypto"
)

const (
	// EventTypeProjectRegistered is emitted when a campaign owner registers a project.
	EventTypeProjectRegistered = "affiliates.project.registered"
	// EventTypeProjectUpdated is emitted when the administrator rewrites project terms.
	EventTypeProjectUpdated = "affiliates.project.updated"
	// EventTypeProjectClosed is emitted when a project slot is drained and zeroed.
	EventTypeProjectClosed = "affiliates.project.closed"
	// EventTypeAffiliateRegistered is emitted when an affiliate enrolls in a project.
	EventTypeAffiliateRegistered = "affiliates.affiliate.registered"
	// EventTypeAffiliateClosed is emitted when an affiliate slot is closed.
	EventTypeAffiliateClosed = "affiliates.affiliate.closed"
	// EventTypeRewardRedeemed is emitted for every successful redemption.
	EventTypeRewardRedeemed = "affiliates.reward.redeemed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func projectAttributes(address crypto.PublicKey, rec *ProjectRecord) map[string]string {
	return map[string]string{
		"project":           address.String(),
		"owner":             rec.OwnerKey.String(),
		"campaign":          rec.CampaignID.String(),
		"title":             rec.Title.String(),
		"feePercentage":     strconv.FormatFloat(rec.AffiliateFeePercentage, 'f', -1, 64),
		"target":            strconv.FormatUint(uint64(rec.AffiliateTarget), 10),
		"maxAffiliateCount": strconv.FormatUint(uint64(rec.MaxAffiliateCount), 10),
		"affiliateCount":    strconv.FormatUint(uint64(rec.AffiliateCount), 10),
	}
}

// ProjectRegisteredEvent announces a new project record.
func ProjectRegisteredEvent(address crypto.PublicKey, rec *ProjectRecord) *types.Event {
	attrs := projectAttributes(address, rec)
	attrs["createdAt"] = strconv.FormatInt(rec.CreatedAt, 10)
	return &types.Event{Type: EventTypeProjectRegistered, Attributes: attrs}
}

// ProjectUpdatedEvent reports the terms after an update.
func ProjectUpdatedEvent(address crypto.PublicKey, rec *ProjectRecord) *types.Event {
	attrs := projectAttributes(address, rec)
	attrs["updatedAt"] = strconv.FormatInt(rec.UpdatedAt, 10)
	return &types.Event{Type: EventTypeProjectUpdated, Attributes: attrs}
}

// ProjectClosedEvent records how many lamports returned to the owner.
func ProjectClosedEvent(address crypto.PublicKey, rec *ProjectRecord, refunded uint64) *types.Event {
	return &types.Event{
		Type: EventTypeProjectClosed,
		Attributes: map[string]string{
			"project":  address.String(),
			"owner":    rec.OwnerKey.String(),
			"campaign": rec.CampaignID.String(),
			"refunded": strconv.FormatUint(refunded, 10),
		},
	}
}

func AffiliateRegisteredEvent(address crypto.PublicKey, rec *AffiliateRecord, affiliateCount uint8, fee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeAffiliateRegistered,
		Attributes: map[string]string{
			"affiliateAccount": address.String(),
			"affiliate":        rec.AffiliateKey.String(),
			"owner":            rec.ProjectOwnerKey.String(),
			"campaign":         rec.CampaignID.String(),
			"affiliateCount":   strconv.FormatUint(uint64(affiliateCount), 10),
			"fee":              strconv.FormatUint(fee, 10),
		},
	}
}

// AffiliateClosedEvent reports the lamports swept to the treasury. A negative
// remaining count means the project was already closed.
func AffiliateClosedEvent(address crypto.PublicKey, rec *AffiliateRecord, swept uint64, remaining int) *types.Event {
	attrs := map[string]string{
		"affiliateAccount": address.String(),
		"affiliate":        rec.AffiliateKey.String(),
		"owner":            rec.ProjectOwnerKey.String(),
		"campaign":         rec.CampaignID.String(),
		"swept":            strconv.FormatUint(swept, 10),
	}
	if remaining >= 0 {
		attrs["affiliateCount"] = strconv.Itoa(remaining)
	}
	return &types.Event{Type: EventTypeAffiliateClosed, Attributes: attrs}
}

func RewardRedeemedEvent(address crypto.PublicKey, rec *AffiliateRecord, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRewardRedeemed,
		Attributes: map[string]string{
			"affiliateAccount": address.String(),
			"affiliate":        rec.AffiliateKey.String(),
			"owner":            rec.ProjectOwnerKey.String(),
			"campaign":         rec.CampaignID.String(),
			"amount":           strconv.FormatUint(amount, 10),
			"totalRedeemed":    strconv.FormatUint(uint64(rec.TotalRedeemed), 10),
		},
	}
}
