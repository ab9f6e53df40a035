package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/rpc"
	"solpay/storage"
)

type cliEnv struct {
	t        *testing.T
	dir      string
	admin    crypto.PublicKey
	adminKey string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{t: t, dir: dir}
	env.adminKey = env.keygen("admin.json")
	admin, err := crypto.LoadKeyFile(env.adminKey)
	require.NoError(t, err)
	env.admin = admin.PublicKey()

	cfg := affiliates.DefaultConfig()
	cfg.Admin = env.admin
	engine, err := affiliates.NewEngine(cfg)
	require.NoError(t, err)
	rt := ledger.NewRuntime(storage.NewMemDB(), ledger.DefaultRent())
	engine.SetEmitter(rt.Emitter())
	require.NoError(t, rt.Register(cfg.ProgramID, "affiliates", ledger.ProgramFunc(
		func(ctx context.Context, txn *ledger.Txn, accounts []types.AccountMeta, data []byte) error {
			return engine.Process(ctx, txn, accounts, data)
		})))
	api, err := rpc.New(rpc.Config{
		Backend:   rt,
		ProgramID: cfg.ProgramID,
		Faucet:    rpc.FaucetConfig{Enabled: true, MaxLamportsPerCall: 5 * affiliates.LamportsPerSOL},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	previous := rpcEndpoint
	rpcEndpoint = srv.URL
	t.Cleanup(func() { rpcEndpoint = previous })
	return env
}

func (e *cliEnv) run(args ...string) (int, string, string) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (e *cliEnv) keygen(name string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	var stdout, stderr bytes.Buffer
	require.Equal(e.t, 0, run([]string{"keygen", "--out", path}, &stdout, &stderr), stderr.String())
	require.Contains(e.t, stdout.String(), "public key:")
	return path
}

func (e *cliEnv) pubkey(path string) string {
	e.t.Helper()
	key, err := crypto.LoadKeyFile(path)
	require.NoError(e.t, err)
	return key.PublicKey().String()
}

func TestCLIProjectLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	ownerFile := env.keygen("owner.json")
	owner := env.pubkey(ownerFile)
	campaign := env.pubkey(env.keygen("campaign.json"))
	admin := "--admin=" + env.admin.String()

	code, out, errOut := env.run("faucet", "--to", owner, "--lamports", "2000000000")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "funded "+owner)

	code, out, errOut = env.run("register-project", admin, "--key", ownerFile, "--campaign", campaign,
		"--fee", "10", "--target", "1", "--max", "2", "--title", "CLI launch")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"status": "committed"`)

	code, out, errOut = env.run("project", "--owner", owner, "--campaign", campaign)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"title": "CLI launch"`)

	// The owner signs in the administrator slot but is not the administrator.
	code, _, errOut = env.run("update-project", "--admin="+owner, "--key", ownerFile, "--owner", owner, "--campaign", campaign,
		"--target", "1", "--max", "3", "--title", "Renamed")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "program code 0")

	code, _, errOut = env.run("update-project", admin, "--key", env.adminKey, "--owner", owner, "--campaign", campaign,
		"--target", "1", "--max", "3", "--title", "Renamed")
	require.Equal(t, 0, code, errOut)

	code, _, errOut = env.run("close-project", admin, "--key", env.adminKey, "--owner", owner, "--campaign", campaign)
	require.Equal(t, 0, code, errOut)

	code, _, errOut = env.run("project", "--owner", owner, "--campaign", campaign)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not_found")
}

func TestCLIAddressMatchesDerivation(t *testing.T) {
	env := newCLIEnv(t)
	owner := env.pubkey(env.keygen("owner.json"))
	campaign := env.pubkey(env.keygen("campaign.json"))

	code, out, errOut := env.run("address", "project", "--owner", owner, "--campaign", campaign)
	require.Equal(t, 0, code, errOut)
	want, bump, err := affiliates.ProjectAddress(affiliates.DefaultProgramID,
		crypto.MustParsePublicKey(owner), crypto.MustParsePublicKey(campaign))
	require.NoError(t, err)
	require.Equal(t, want.String(), strings.Fields(out)[0])
	require.Contains(t, out, fmt.Sprintf("(bump %d)", bump))

	code, _, _ = env.run("address", "affiliate", "--owner", owner, "--campaign", campaign)
	require.Equal(t, 1, code)
}

func TestCLIArgumentValidation(t *testing.T) {
	env := newCLIEnv(t)
	existing := env.keygen("key.json")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "Usage:"},
		{"unknown command", []string{"mint"}, "Unknown command"},
		{"keygen needs out", []string{"keygen"}, "--out is required"},
		{"keygen refuses overwrite", []string{"keygen", "--out", existing}, "already exists"},
		{"transfer needs lamports", []string{"transfer", "--key", existing, "--to", env.admin.String()}, "--lamports must be positive"},
		{"faucet bad key", []string{"faucet", "--to", "nope"}, "--to"},
		{"terms out of range", []string{"register-project", "--key", existing, "--campaign", env.admin.String(), "--max", "300"}, "--max must fit in one byte"},
		{"register owner mismatch", []string{"register-project", "--key", existing, "--owner", env.admin.String(), "--campaign", env.admin.String()}, "--owner must match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := env.run(tc.args...)
			require.Equal(t, 1, code)
			require.Contains(t, errOut, tc.want)
		})
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	previous := rpcEndpoint
	t.Cleanup(func() { rpcEndpoint = previous })

	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:1", "project", "--owner", "x"})
	require.NoError(t, err)
	require.Equal(t, "http://node:1", rpcEndpoint)
	require.Equal(t, []string{"project", "--owner", "x"}, rest)

	_, err = applyGlobalFlags([]string{"--rpc=http://node:2"})
	require.NoError(t, err)
	require.Equal(t, "http://node:2", rpcEndpoint)

	_, err = applyGlobalFlags([]string{"--rpc"})
	require.Error(t, err)
}
