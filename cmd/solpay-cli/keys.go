package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"solpay/crypto"
	"solpay/native/affiliates"
)

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	var out string
	var force bool
	fs.StringVar(&out, "out", "", "path of the key file to write")
	fs.BoolVar(&force, "force", false, "overwrite an existing key file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if out == "" {
		return printError(stderr, errors.New("--out is required"))
	}
	if _, err := os.Stat(out); err == nil && !force {
		return printError(stderr, fmt.Errorf("%s already exists; pass --force to overwrite", out))
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err)
	}
	if err := crypto.SaveKeyFile(out, key); err != nil {
		return printError(stderr, err)
	}
	pub := key.PublicKey()
	fmt.Fprintf(stdout, "public key: %s\n", pub)
	fmt.Fprintf(stdout, "bech32:     %s\n", pub.Bech32())
	return 0
}

// runAddress derives record addresses offline.
func runAddress(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return printError(stderr, errors.New("usage: address <project|affiliate|key> [flags]"))
	}
	kind, rest := args[0], args[1:]
	fs := newFlagSet("address "+kind, stderr)
	prog := bindProgramFlags(fs)
	var owner, campaign, affiliate, keyFile string
	fs.StringVar(&owner, "owner", "", "project owner key")
	fs.StringVar(&campaign, "campaign", "", "campaign id")
	fs.StringVar(&affiliate, "affiliate", "", "affiliate key")
	fs.StringVar(&keyFile, "key", "", "key file to print the public key of")
	if err := fs.Parse(rest); err != nil {
		return 1
	}
	if kind == "key" {
		key, err := loadKeyFlag("key", keyFile)
		if err != nil {
			return printError(stderr, err)
		}
		fmt.Fprintln(stdout, key.PublicKey())
		return 0
	}
	cfg, err := prog.config()
	if err != nil {
		return printError(stderr, err)
	}
	ownerKey, err := parseKeyFlag("owner", owner)
	if err != nil {
		return printError(stderr, err)
	}
	campaignKey, err := parseKeyFlag("campaign", campaign)
	if err != nil {
		return printError(stderr, err)
	}
	var (
		address crypto.PublicKey
		bump    uint8
	)
	switch kind {
	case "project":
		address, bump, err = affiliates.ProjectAddress(cfg.ProgramID, ownerKey, campaignKey)
	case "affiliate":
		affiliateKey, perr := parseKeyFlag("affiliate", affiliate)
		if perr != nil {
			return printError(stderr, perr)
		}
		address, bump, err = affiliates.AffiliateAddress(cfg.ProgramID, affiliateKey, ownerKey, campaignKey)
	default:
		return printError(stderr, fmt.Errorf("unknown address kind %q", kind))
	}
	if err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintf(stdout, "%s (bump %d)\n", address, bump)
	return 0
}
