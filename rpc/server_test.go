package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/indexer"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/native/common"
	"solpay/storage"
)

type apiFixture struct {
	t     *testing.T
	rt    *ledger.Runtime
	cfg   affiliates.Config
	admin *crypto.PrivateKey
	srv   *Server
	nonce uint64
}

func newAPIFixture(t *testing.T, mutate func(*Config)) *apiFixture {
	t.Helper()
	admin, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	treasury, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	program, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	cfg := affiliates.DefaultConfig()
	cfg.ProgramID = program.PublicKey()
	cfg.Admin = admin.PublicKey()
	cfg.Treasury = treasury.PublicKey()

	engine, err := affiliates.NewEngine(cfg)
	require.NoError(t, err)
	rt := ledger.NewRuntime(storage.NewMemDB(), ledger.DefaultRent())
	engine.SetEmitter(rt.Emitter())
	require.NoError(t, rt.Register(cfg.ProgramID, "affiliates", ledger.ProgramFunc(
		func(ctx context.Context, txn *ledger.Txn, accounts []types.AccountMeta, data []byte) error {
			return engine.Process(ctx, txn, accounts, data)
		})))

	idx, err := indexer.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	rt.SetEventSink(idx)

	serverCfg := Config{
		Backend:   rt,
		Events:    idx,
		ProgramID: cfg.ProgramID,
		Faucet: FaucetConfig{
			Enabled:            true,
			Quota:              common.Quota{MaxRequestsPerEpoch: 3, EpochSeconds: 3600},
			MaxLamportsPerCall: 5 * affiliates.LamportsPerSOL,
		},
	}
	if mutate != nil {
		mutate(&serverCfg)
	}
	srv, err := New(serverCfg)
	require.NoError(t, err)
	return &apiFixture{t: t, rt: rt, cfg: cfg, admin: admin, srv: srv}
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) submit(ix types.Instruction, buildErr error, signers ...*crypto.PrivateKey) *httptest.ResponseRecorder {
	f.t.Helper()
	require.NoError(f.t, buildErr)
	f.nonce++
	tx := &types.Transaction{Instruction: ix, Nonce: f.nonce}
	require.NoError(f.t, tx.Sign(signers...))
	return f.do(http.MethodPost, "/v1/transactions", tx)
}

func (f *apiFixture) wallet(lamports uint64) *crypto.PrivateKey {
	f.t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(f.t, err)
	_, err = f.rt.Fund(key.PublicKey(), lamports)
	require.NoError(f.t, err)
	return key
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func testTerms() affiliates.ProjectTerms {
	return affiliates.ProjectTerms{AffiliateFeePercentage: 10, AffiliateTarget: 1, MaxAffiliateCount: 2, Title: "Spring launch"}
}

func TestHealthzAndRequestID(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.do(http.MethodGet, "/healthz", nil)
	rec := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "solpay_rpc_requests_total")
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	owner := f.wallet(2 * affiliates.LamportsPerSOL)
	campaign := f.wallet(1).PublicKey()

	ix, err := affiliates.NewRegisterProjectInstruction(f.cfg, owner.PublicKey(), campaign, testTerms())
	rec := f.submit(ix, err, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt ledger.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	require.Equal(t, "committed", receipt.Status)
	require.Equal(t, "affiliates", receipt.Program)
	require.Len(t, receipt.Events, 1)

	path := fmt.Sprintf("/v1/projects/%s/%s", owner.PublicKey(), campaign)
	rec = f.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view affiliates.ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "Spring launch", view.Record.Title.String())
	require.Equal(t, f.rt.MinimumBalance(affiliates.ProjectRecordSize), view.Balance)

	rec = f.do(http.MethodGet, "/v1/accounts/"+view.Address.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var account AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	require.Equal(t, f.cfg.ProgramID, account.Owner)
	require.Len(t, account.Data, affiliates.ProjectRecordSize)
	require.Equal(t, account.Balance, account.RentExemptMinimum)

	rec = f.do(http.MethodGet, "/v1/events?type="+affiliates.EventTypeProjectRegistered, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Events, 1)
	require.Equal(t, receipt.Hash, page.Events[0].Tx)
	require.Equal(t, view.Address.String(), page.Events[0].Attributes["project"])
	require.Equal(t, page.Events[0].ID, page.NextAfter)

	rec = f.do(http.MethodGet, fmt.Sprintf("/v1/events?after=%d", page.NextAfter), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Empty(t, page.Events)
}

func TestAffiliateQueryOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	owner := f.wallet(2 * affiliates.LamportsPerSOL)
	member := f.wallet(affiliates.LamportsPerSOL)
	campaign := f.wallet(1).PublicKey()

	ix, err := affiliates.NewRegisterProjectInstruction(f.cfg, owner.PublicKey(), campaign, testTerms())
	require.Equal(t, http.StatusOK, f.submit(ix, err, owner).Code)
	ix, err = affiliates.NewRegisterAffiliateInstruction(f.cfg, member.PublicKey(), owner.PublicKey(), campaign)
	require.Equal(t, http.StatusOK, f.submit(ix, err, member).Code)

	path := fmt.Sprintf("/v1/affiliates/%s/%s/%s", member.PublicKey(), owner.PublicKey(), campaign)
	rec := f.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view affiliates.AffiliateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, member.PublicKey(), view.Record.AffiliateKey)
	require.Zero(t, view.Redeemable)
	require.False(t, view.CanRedeem)

	stranger := f.wallet(1).PublicKey()
	path = fmt.Sprintf("/v1/affiliates/%s/%s/%s", stranger, owner.PublicKey(), campaign)
	rec = f.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitTransactionErrorMapping(t *testing.T) {
	f := newAPIFixture(t, nil)
	owner := f.wallet(2 * affiliates.LamportsPerSOL)
	campaign := f.wallet(1).PublicKey()
	ix, err := affiliates.NewRegisterProjectInstruction(f.cfg, owner.PublicKey(), campaign, testTerms())
	require.Equal(t, http.StatusOK, f.submit(ix, err, owner).Code)

	t.Run("program error carries code", func(t *testing.T) {
		ix, err := affiliates.NewRegisterProjectInstruction(f.cfg, owner.PublicKey(), campaign, testTerms())
		rec := f.submit(ix, err, owner)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		apiErr := decodeAPIError(t, rec)
		require.Equal(t, "program_error", apiErr.Code)
		require.NotNil(t, apiErr.ProgramCode)
		require.Equal(t, uint32(affiliates.CodeAlreadyInitialized), *apiErr.ProgramCode)
	})

	t.Run("non-admin close", func(t *testing.T) {
		impostor := f.wallet(affiliates.LamportsPerSOL)
		forged := f.cfg
		forged.Admin = impostor.PublicKey()
		ix, err := affiliates.NewCloseProjectInstruction(forged, owner.PublicKey(), campaign)
		rec := f.submit(ix, err, impostor)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		apiErr := decodeAPIError(t, rec)
		require.NotNil(t, apiErr.ProgramCode)
		require.Equal(t, uint32(affiliates.CodeActionNotAllowed), *apiErr.ProgramCode)
	})

	t.Run("missing signature", func(t *testing.T) {
		ix, err := affiliates.NewCloseProjectInstruction(f.cfg, owner.PublicKey(), campaign)
		rec := f.submit(ix, err)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthorized", decodeAPIError(t, rec).Code)
	})

	t.Run("unknown program", func(t *testing.T) {
		payer := f.wallet(affiliates.LamportsPerSOL)
		ix := types.Instruction{
			ProgramID: f.wallet(1).PublicKey(),
			Accounts:  []types.AccountMeta{{Key: payer.PublicKey(), IsSigner: true}},
		}
		rec := f.submit(ix, nil, payer)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ledger rejection", func(t *testing.T) {
		poor := f.wallet(10)
		rec := f.submit(ledger.NewTransferInstruction(poor.PublicKey(), owner.PublicKey(), 1_000), nil, poor)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decodeAPIError(t, rec)
		require.Equal(t, "ledger_error", apiErr.Code)
		require.NotNil(t, apiErr.Data)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewBufferString(`{"instruction":`))
		rec := httptest.NewRecorder()
		f.srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_request", decodeAPIError(t, rec).Code)
	})

	t.Run("paused program", func(t *testing.T) {
		f.rt.SetPauses(common.PauseSet{"affiliates": true})
		defer f.rt.SetPauses(nil)
		ix, err := affiliates.NewCloseProjectInstruction(f.cfg, owner.PublicKey(), campaign)
		rec := f.submit(ix, err, f.admin)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "paused", decodeAPIError(t, rec).Code)
	})
}

func TestAccountLookupErrors(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/v1/accounts/not-a-key", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	missing, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	rec = f.do(http.MethodGet, "/v1/accounts/"+missing.PublicKey().String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFaucetQuota(t *testing.T) {
	f := newAPIFixture(t, nil)
	recipient, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	amount := affiliates.LamportsPerSOL

	for i := 1; i <= 3; i++ {
		rec := f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Recipient: recipient.PublicKey(), Lamports: amount})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp FaucetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, uint64(i)*amount, resp.Balance)
		require.Equal(t, uint32(i), resp.RequestsUsed)
	}

	rec := f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Recipient: recipient.PublicKey(), Lamports: amount})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "quota_exceeded", decodeAPIError(t, rec).Code)

	rec = f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Recipient: recipient.PublicKey(), Lamports: 6 * affiliates.LamportsPerSOL})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Recipient: recipient.PublicKey()})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFaucetQuotaResetsNextEpoch(t *testing.T) {
	now := time.Unix(7200, 0)
	f := newAPIFixture(t, func(cfg *Config) {
		cfg.Faucet.Quota.MaxRequestsPerEpoch = 1
		cfg.Now = func() time.Time { return now }
	})
	recipient, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	req := FaucetRequest{Recipient: recipient.PublicKey(), Lamports: 1_000}

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/faucet", req).Code)
	require.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/v1/faucet", req).Code)
	now = now.Add(time.Hour)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/faucet", req).Code)
}

func TestFaucetRejectsProgramAccounts(t *testing.T) {
	f := newAPIFixture(t, nil)
	owner := f.wallet(2 * affiliates.LamportsPerSOL)
	campaign := f.wallet(1).PublicKey()
	ix, err := affiliates.NewRegisterProjectInstruction(f.cfg, owner.PublicKey(), campaign, testTerms())
	require.Equal(t, http.StatusOK, f.submit(ix, err, owner).Code)
	project, _, err := affiliates.ProjectAddress(f.cfg.ProgramID, owner.PublicKey(), campaign)
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Recipient: project, Lamports: 1_000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ledger_error", decodeAPIError(t, rec).Code)
}

func TestFaucetDisabled(t *testing.T) {
	f := newAPIFixture(t, func(cfg *Config) { cfg.Faucet.Enabled = false })
	rec := f.do(http.MethodPost, "/v1/faucet", FaucetRequest{Lamports: 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsDisabled(t *testing.T) {
	f := newAPIFixture(t, func(cfg *Config) { cfg.Events = nil })
	rec := f.do(http.MethodGet, "/v1/events", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f = newAPIFixture(t, nil)
	rec = f.do(http.MethodGet, "/v1/events?limit=-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	f := newAPIFixture(t, func(cfg *Config) {
		cfg.RequestsPerSecond = 0.001
		cfg.Burst = 1
	})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := "/v1/accounts/" + key.PublicKey().String()

	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, path, nil).Code)
	rec := f.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", decodeAPIError(t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(other, req)
	require.Equal(t, http.StatusNotFound, other.Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", nil).Code)
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
