package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"solpay/crypto"
	"solpay/native/affiliates"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// programFlags binds the deployment identity shared by every program
// command.
type programFlags struct {
	program  string
	admin    string
	treasury string
	fee      uint64
}

func bindProgramFlags(fs *flag.FlagSet) *programFlags {
	defaults := affiliates.DefaultConfig()
	p := &programFlags{}
	fs.StringVar(&p.program, "program", envOr("SOLPAY_PROGRAM_ID", defaults.ProgramID.String()), "affiliate program id")
	fs.StringVar(&p.admin, "admin", envOr("SOLPAY_ADMIN", defaults.Admin.String()), "program administrator key")
	fs.StringVar(&p.treasury, "treasury", envOr("SOLPAY_TREASURY", defaults.Treasury.String()), "program treasury key")
	p.fee = defaults.RegistrationFee
	return p
}

func (p *programFlags) config() (affiliates.Config, error) {
	var cfg affiliates.Config
	var err error
	if cfg.ProgramID, err = parseKeyFlag("program", p.program); err != nil {
		return cfg, err
	}
	if cfg.Admin, err = parseKeyFlag("admin", p.admin); err != nil {
		return cfg, err
	}
	if cfg.Treasury, err = parseKeyFlag("treasury", p.treasury); err != nil {
		return cfg, err
	}
	cfg.RegistrationFee = p.fee
	cfg.LinkagePolicy = affiliates.LinkageStrict
	return cfg, cfg.Validate()
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func parseKeyFlag(name, value string) (crypto.PublicKey, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	key, err := crypto.ParsePublicKey(value)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return key, nil
}

func loadKeyFlag(name, path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	key, err := crypto.LoadKeyFile(path)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return key, nil
}

// termsFlags binds the editable project terms.
type termsFlags struct {
	fee    float64
	target uint
	max    uint
	title  string
}

func bindTermsFlags(fs *flag.FlagSet) *termsFlags {
	t := &termsFlags{}
	fs.Float64Var(&t.fee, "fee", 0, "affiliate fee percentage (0-100)")
	fs.UintVar(&t.target, "target", 1, "reward target in whole coins")
	fs.UintVar(&t.max, "max", 0, "maximum number of affiliates")
	fs.StringVar(&t.title, "title", "", "project title (at most 50 characters)")
	return t
}

var errByteRange = errors.New("must fit in one byte")

func (t *termsFlags) terms() (affiliates.ProjectTerms, error) {
	if t.target > 255 {
		return affiliates.ProjectTerms{}, fmt.Errorf("--target %w", errByteRange)
	}
	if t.max > 255 {
		return affiliates.ProjectTerms{}, fmt.Errorf("--max %w", errByteRange)
	}
	return affiliates.ProjectTerms{
		AffiliateFeePercentage: t.fee,
		AffiliateTarget:        uint8(t.target),
		MaxAffiliateCount:      uint8(t.max),
		Title:                  t.title,
	}, nil
}
