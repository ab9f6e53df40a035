package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"solpay/config"
	"solpay/core/types"
	"solpay/crypto"
	"solpay/indexer"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.IndexDSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.EnableFaucet = true
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewNodeWiresProgramAndIndex(t *testing.T) {
	cfg := testConfig(t)
	n, err := newNode(cfg, storage.NewMemDB(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	programCfg, err := cfg.Program.Affiliates()
	require.NoError(t, err)
	owner, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	campaign, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = n.runtime.Fund(owner.PublicKey(), affiliates.LamportsPerSOL)
	require.NoError(t, err)

	ix, err := affiliates.NewRegisterProjectInstruction(programCfg, owner.PublicKey(), campaign.PublicKey(), affiliates.ProjectTerms{
		AffiliateFeePercentage: 5,
		AffiliateTarget:        1,
		MaxAffiliateCount:      3,
		Title:                  "Node wiring",
	})
	require.NoError(t, err)
	tx := &types.Transaction{Instruction: ix, Nonce: 1}
	require.NoError(t, tx.Sign(owner))
	receipt, err := n.runtime.Execute(context.Background(), tx)
	require.NoError(t, err)

	entries, err := n.index.Query(context.Background(), indexer.Filter{TxHash: receipt.Hash})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, affiliates.EventTypeProjectRegistered, entries[0].Type)

	rec := httptest.NewRecorder()
	n.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewNodeHonoursPauses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pauses.System = true
	n, err := newNode(cfg, storage.NewMemDB(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	from, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = n.runtime.Fund(from.PublicKey(), 10_000)
	require.NoError(t, err)
	tx := &types.Transaction{Instruction: ledger.NewTransferInstruction(from.PublicKey(), crypto.PublicKey{1}, 100), Nonce: 1}
	require.NoError(t, tx.Sign(from))

	body := bytes.NewBuffer(nil)
	require.NoError(t, json.NewEncoder(body).Encode(tx))
	rec := httptest.NewRecorder()
	n.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/transactions", body))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewNodeWithoutIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.IndexDSN = ""
	n, err := newNode(cfg, storage.NewMemDB(), quietLogger())
	require.NoError(t, err)
	require.Nil(t, n.index)
	require.NoError(t, n.Close())

	rec := httptest.NewRecorder()
	n.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewNodeRejectsBadProgram(t *testing.T) {
	cfg := testConfig(t)
	cfg.Program.Admin = "not-a-key"
	_, err := newNode(cfg, storage.NewMemDB(), quietLogger())
	require.Error(t, err)
}
