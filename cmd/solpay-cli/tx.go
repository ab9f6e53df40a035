package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/ledger"
	"solpay/native/affiliates"
)

// projectArgs are the flags every project-scoped transaction takes.
type projectArgs struct {
	prog     *programFlags
	owner    string
	campaign string
	keyFile  string
}

func bindProjectArgs(name string, stderr io.Writer, keyHelp string) (*projectArgs, *flag.FlagSet) {
	fs := newFlagSet(name, stderr)
	p := &projectArgs{prog: bindProgramFlags(fs)}
	fs.StringVar(&p.owner, "owner", "", "project owner key")
	fs.StringVar(&p.campaign, "campaign", "", "campaign id")
	fs.StringVar(&p.keyFile, "key", "", keyHelp)
	return p, fs
}

type resolvedProject struct {
	cfg      affiliates.Config
	owner    crypto.PublicKey
	campaign crypto.PublicKey
	signer   *crypto.PrivateKey
}

// resolve parses the shared flags. When ownerFromKey is set the owner
// defaults to the signing key.
func (p *projectArgs) resolve(ownerFromKey bool) (*resolvedProject, error) {
	cfg, err := p.prog.config()
	if err != nil {
		return nil, err
	}
	signer, err := loadKeyFlag("key", p.keyFile)
	if err != nil {
		return nil, err
	}
	out := &resolvedProject{cfg: cfg, signer: signer}
	if ownerFromKey && p.owner == "" {
		out.owner = signer.PublicKey()
	} else if out.owner, err = parseKeyFlag("owner", p.owner); err != nil {
		return nil, err
	}
	if out.campaign, err = parseKeyFlag("campaign", p.campaign); err != nil {
		return nil, err
	}
	return out, nil
}

func send(stdout, stderr io.Writer, ix types.Instruction, buildErr error, signers ...*crypto.PrivateKey) int {
	if buildErr != nil {
		return printError(stderr, buildErr)
	}
	result, err := submit(ix, signers...)
	if err != nil {
		return printError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runRegisterProject(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("register-project", stderr, "owner key file (pays rent)")
	terms := bindTermsFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(true)
	if err != nil {
		return printError(stderr, err)
	}
	if r.owner != r.signer.PublicKey() {
		return printError(stderr, errors.New("--owner must match the signing key"))
	}
	t, err := terms.terms()
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewRegisterProjectInstruction(r.cfg, r.owner, r.campaign, t)
	return send(stdout, stderr, ix, err, r.signer)
}

func runUpdateProject(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("update-project", stderr, "administrator key file")
	terms := bindTermsFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(false)
	if err != nil {
		return printError(stderr, err)
	}
	t, err := terms.terms()
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewUpdateProjectInstruction(r.cfg, r.owner, r.campaign, t)
	return send(stdout, stderr, ix, err, r.signer)
}

func runCloseProject(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("close-project", stderr, "administrator key file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(false)
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewCloseProjectInstruction(r.cfg, r.owner, r.campaign)
	return send(stdout, stderr, ix, err, r.signer)
}

func runRegisterAffiliate(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("register-affiliate", stderr, "affiliate key file (pays rent and fee)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(false)
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewRegisterAffiliateInstruction(r.cfg, r.signer.PublicKey(), r.owner, r.campaign)
	return send(stdout, stderr, ix, err, r.signer)
}

func runRedeem(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("redeem", stderr, "affiliate key file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(false)
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewRedeemRewardInstruction(r.cfg, r.signer.PublicKey(), r.owner, r.campaign)
	return send(stdout, stderr, ix, err, r.signer)
}

func runCloseAffiliate(args []string, stdout, stderr io.Writer) int {
	p, fs := bindProjectArgs("close-affiliate", stderr, "administrator key file")
	var affiliate string
	fs.StringVar(&affiliate, "affiliate", "", "affiliate key")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	r, err := p.resolve(false)
	if err != nil {
		return printError(stderr, err)
	}
	affiliateKey, err := parseKeyFlag("affiliate", affiliate)
	if err != nil {
		return printError(stderr, err)
	}
	ix, err := affiliates.NewCloseAffiliateAccountInstruction(r.cfg, affiliateKey, r.owner, r.campaign)
	return send(stdout, stderr, ix, err, r.signer)
}

func runTransfer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("transfer", stderr)
	var keyFile, to string
	var lamports uint64
	fs.StringVar(&keyFile, "key", "", "sender key file")
	fs.StringVar(&to, "to", "", "recipient key or record address")
	fs.Uint64Var(&lamports, "lamports", 0, "amount to send")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	signer, err := loadKeyFlag("key", keyFile)
	if err != nil {
		return printError(stderr, err)
	}
	recipient, err := parseKeyFlag("to", to)
	if err != nil {
		return printError(stderr, err)
	}
	if lamports == 0 {
		return printError(stderr, errors.New("--lamports must be positive"))
	}
	return send(stdout, stderr, ledger.NewTransferInstruction(signer.PublicKey(), recipient, lamports), nil, signer)
}

func runFaucet(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("faucet", stderr)
	var to string
	var lamports uint64
	fs.StringVar(&to, "to", "", "recipient key")
	fs.Uint64Var(&lamports, "lamports", affiliates.LamportsPerSOL, "amount to request")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	recipient, err := parseKeyFlag("to", to)
	if err != nil {
		return printError(stderr, err)
	}
	body := map[string]any{"recipient": recipient, "lamports": lamports}
	result, err := callAPI(http.MethodPost, "/v1/faucet", body)
	if err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintf(stdout, "funded %s\n", recipient)
	writeResult(stdout, result)
	return 0
}
