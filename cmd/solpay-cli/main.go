// Command solpay-cli builds, signs and submits affiliate program transactions
// against a solpayd node.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var rpcEndpoint = defaultRPCEndpoint()

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	rest := args[1:]
	switch args[0] {
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "account":
		return runAccount(rest, stdout, stderr)
	case "project":
		return runProject(rest, stdout, stderr)
	case "affiliate":
		return runAffiliate(rest, stdout, stderr)
	case "events":
		return runEvents(rest, stdout, stderr)
	case "register-project":
		return runRegisterProject(rest, stdout, stderr)
	case "update-project":
		return runUpdateProject(rest, stdout, stderr)
	case "close-project":
		return runCloseProject(rest, stdout, stderr)
	case "register-affiliate":
		return runRegisterAffiliate(rest, stdout, stderr)
	case "redeem":
		return runRedeem(rest, stdout, stderr)
	case "close-affiliate":
		return runCloseAffiliate(rest, stdout, stderr)
	case "transfer":
		return runTransfer(rest, stdout, stderr)
	case "faucet":
		return runFaucet(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("SOLPAY_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8899"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func usage() string {
	return strings.TrimSpace(`Usage:
  solpay-cli [--rpc URL] <command> [flags]

Keys and addresses:
  keygen              Generate a key file and print its public key
  address             Derive a project or affiliate record address

Queries:
  account             Show a ledger account
  project             Show a project record
  affiliate           Show an affiliate record and its redeemable balance
  events              List indexed events

Transactions:
  register-project    Register a project for a campaign (signed by the owner)
  update-project      Rewrite project terms (signed by the administrator)
  close-project       Close a project and refund the owner (administrator)
  register-affiliate  Enroll in a project (signed by the affiliate)
  redeem              Redeem one reward (signed by the affiliate)
  close-affiliate     Close an enrollment into the treasury (administrator)
  transfer            Send lamports from a wallet
  faucet              Request development funds

Program identity defaults to the built-in deployment and can be overridden
with --program, --admin and --treasury or the SOLPAY_PROGRAM_ID,
SOLPAY_ADMIN and SOLPAY_TREASURY environment variables.`)
}
