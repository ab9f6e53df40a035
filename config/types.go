package config

import (
	"fmt"
	"strings"

	"solpay/crypto"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/native/common"
)

// Program identifies the affiliate program deployment the node serves.
type Program struct {
	ProgramID       string `toml:"ProgramID" yaml:"ProgramID"`
	Admin           string `toml:"Admin" yaml:"Admin"`
	Treasury        string `toml:"Treasury" yaml:"Treasury"`
	RegistrationFee uint64 `toml:"RegistrationFee" yaml:"RegistrationFee"`
	// LinkagePolicy is "strict" (default) or "legacy".
	LinkagePolicy string `toml:"LinkagePolicy" yaml:"LinkagePolicy"`
}

// Affiliates parses the section into the engine configuration.
func (p Program) Affiliates() (affiliates.Config, error) {
	var cfg affiliates.Config
	var err error
	if cfg.ProgramID, err = parseKey("Program.ProgramID", p.ProgramID); err != nil {
		return cfg, err
	}
	if cfg.Admin, err = parseKey("Program.Admin", p.Admin); err != nil {
		return cfg, err
	}
	if cfg.Treasury, err = parseKey("Program.Treasury", p.Treasury); err != nil {
		return cfg, err
	}
	if cfg.LinkagePolicy, err = affiliates.ParseLinkagePolicy(p.LinkagePolicy); err != nil {
		return cfg, err
	}
	cfg.RegistrationFee = p.RegistrationFee
	return cfg, cfg.Validate()
}

func parseKey(field, value string) (crypto.PublicKey, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.PublicKey{}, fmt.Errorf("%s must be set", field)
	}
	key, err := crypto.ParsePublicKey(value)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

// Rent prices account storage.
type Rent struct {
	LamportsPerByteYear uint64  `toml:"LamportsPerByteYear" yaml:"LamportsPerByteYear"`
	ExemptionThreshold  float64 `toml:"ExemptionThreshold" yaml:"ExemptionThreshold"`
}

func (r Rent) Ledger() ledger.Rent {
	return ledger.Rent{LamportsPerByteYear: r.LamportsPerByteYear, ExemptionThreshold: r.ExemptionThreshold}
}

// Pauses switches registered programs off without a redeploy.
type Pauses struct {
	Affiliates bool `toml:"Affiliates" yaml:"Affiliates"`
	System     bool `toml:"System" yaml:"System"`
}

// IsPaused implements common.PauseView.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "affiliates":
		return p.Affiliates
	case "system":
		return p.System
	default:
		return false
	}
}

// RateLimit throttles RPC clients by remote address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond" yaml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst" yaml:"Burst"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	ServiceName string  `toml:"ServiceName" yaml:"ServiceName"`
	Endpoint    string  `toml:"Endpoint" yaml:"Endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"Insecure"`
	Headers     string  `toml:"Headers,omitempty" yaml:"Headers,omitempty"`
	Traces      bool    `toml:"Traces" yaml:"Traces"`
	Metrics     bool    `toml:"Metrics" yaml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"SampleRatio"`
}

// Faucet bounds development funding per recipient.
type Faucet struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch" yaml:"MaxRequestsPerEpoch"`
	MaxLamportsPerEpoch uint64 `toml:"MaxLamportsPerEpoch" yaml:"MaxLamportsPerEpoch"`
	EpochSeconds        uint32 `toml:"EpochSeconds" yaml:"EpochSeconds"`
	MaxLamportsPerCall  uint64 `toml:"MaxLamportsPerCall" yaml:"MaxLamportsPerCall"`
}

func (f Faucet) Quota() common.Quota {
	return common.Quota{
		MaxRequestsPerEpoch: f.MaxRequestsPerEpoch,
		MaxLamportsPerEpoch: f.MaxLamportsPerEpoch,
		EpochSeconds:        f.EpochSeconds,
	}
}
