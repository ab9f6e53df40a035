package affiliates

import (
	"fmt"
	"strings"

	"solpay/crypto"
)

const (
	// LamportsPerSOL is the number of native units in one whole coin.
	LamportsPerSOL uint64 = 1_000_000_000
	// LamportsPerRewardUnit converts reward targets into native units.
	LamportsPerRewardUnit = LamportsPerSOL
	// DefaultRegistrationFee is charged to every enrolling affiliate (0.1 SOL).
	DefaultRegistrationFee = LamportsPerSOL / 10
	// MaxProjectTitleLength bounds project titles, counted in characters.
	MaxProjectTitleLength = 50
	// MaxAffiliateFeePercentage bounds AffiliateFeePercentage.
	MaxAffiliateFeePercentage = 100.0

	ProjectSeedTag   = "project_account"
	AffiliateSeedTag = "affiliate_account"
)

// Default identities baked into the deployed program.
var (
	DefaultProgramID = crypto.MustParsePublicKey("So1payAffi1iates111111111111111111111111111")
	DefaultAdmin     = crypto.MustParsePublicKey("Gj9MVJ2jX2xApttsPJjb1sKoQePh1V226z3F9t3THZxD")
	DefaultTreasury  = crypto.MustParsePublicKey("ERdxYUQ5CibPsEeVKteXtLw2pNd5q9Cz36LYngme4VEf")
)

// LinkagePolicy decides when an affiliate record is considered linked to the
// project presented alongside it during redemption.
type LinkagePolicy string

const (
	// LinkageStrict rejects when either the owner or the campaign differs.
	LinkageStrict LinkagePolicy = "strict"
	// LinkageLegacy rejects only when both differ, matching the deployed
	// program's historical behaviour.
	LinkageLegacy LinkagePolicy = "legacy"
)

// ParseLinkagePolicy accepts "strict", "legacy" or an empty string (strict).
func ParseLinkagePolicy(value string) (LinkagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(LinkageStrict):
		return LinkageStrict, nil
	case string(LinkageLegacy):
		return LinkageLegacy, nil
	default:
		return "", fmt.Errorf("affiliates: unknown linkage policy %q", value)
	}
}

// mismatched reports whether the linkage check fails under the policy.
func (p LinkagePolicy) mismatched(ownerDiffers, campaignDiffers bool) bool {
	if p == LinkageLegacy {
		return ownerDiffers && campaignDiffers
	}
	return ownerDiffers || campaignDiffers
}

// Config carries the static identities and economics of one deployment.
type Config struct {
	ProgramID       crypto.PublicKey
	Admin           crypto.PublicKey
	Treasury        crypto.PublicKey
	RegistrationFee uint64
	LinkagePolicy   LinkagePolicy
}

// DefaultConfig returns the configuration of the public deployment.
func DefaultConfig() Config {
	return Config{
		ProgramID:       DefaultProgramID,
		Admin:           DefaultAdmin,
		Treasury:        DefaultTreasury,
		RegistrationFee: DefaultRegistrationFee,
		LinkagePolicy:   LinkageStrict,
	}
}

// Validate ensures the configuration is internally consistent.
func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("affiliates: program id must be set")
	}
	if c.Admin.IsZero() {
		return fmt.Errorf("affiliates: admin must be set")
	}
	if c.Treasury.IsZero() {
		return fmt.Errorf("affiliates: treasury must be set")
	}
	if c.Treasury == c.ProgramID {
		return fmt.Errorf("affiliates: treasury cannot be the program id")
	}
	if _, err := ParseLinkagePolicy(string(c.LinkagePolicy)); err != nil {
		return err
	}
	return nil
}
