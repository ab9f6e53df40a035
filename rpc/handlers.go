package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/indexer"
	"solpay/native/affiliates"
	"solpay/native/common"
	"solpay/observability/logging"
	"solpay/observability/metrics"
)

// AccountResponse is the wire view of one ledger account.
type AccountResponse struct {
	Address crypto.PublicKey `json:"address"`
	Owner   crypto.PublicKey `json:"owner"`
	Balance uint64           `json:"balance"`
	Data    []byte           `json:"data,omitempty"`
	// RentExemptMinimum is the reserve the account must keep for its data.
	RentExemptMinimum uint64 `json:"rentExemptMinimum"`
}

// FaucetRequest asks the development faucet to fund Recipient.
type FaucetRequest struct {
	Recipient crypto.PublicKey `json:"recipient"`
	Lamports  uint64           `json:"lamports"`
}

// FaucetResponse reports the funded balance and the remaining quota window.
type FaucetResponse struct {
	Recipient    crypto.PublicKey `json:"recipient"`
	Balance      uint64           `json:"balance"`
	RequestsUsed uint32           `json:"requestsUsed"`
	LamportsUsed uint64           `json:"lamportsUsed"`
	Epoch        uint64           `json:"epoch"`
}

// EventsResponse is one page of indexed events. NextAfter feeds the after
// parameter of the following request.
type EventsResponse struct {
	Events    []indexer.Entry `json:"events"`
	NextAfter uint64          `json:"nextAfter,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func keyParam(r *http.Request, name string) (crypto.PublicKey, error) {
	key, err := crypto.ParsePublicKey(chi.URLParam(r, name))
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return key, nil
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx types.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid transaction body", err.Error())
		return
	}
	receipt, err := s.backend.Execute(r.Context(), &tx)
	if err != nil {
		s.logger.Info("transaction rejected",
			"request_id", RequestIDFrom(r.Context()),
			"program", tx.Instruction.ProgramID.String(),
			"error", err)
		var data any
		if receipt != nil {
			data = receipt
		}
		writeFailure(w, err, data)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	account, ok, err := s.backend.Account(key)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "account not found", key.String())
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Address:           key,
		Owner:             account.Owner,
		Balance:           account.Balance,
		Data:              account.Data,
		RentExemptMinimum: s.backend.MinimumBalance(len(account.Data)),
	})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	owner, err := keyParam(r, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	campaign, err := keyParam(r, "campaign")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	view, ok, err := affiliates.GetProject(s.backend, s.programID, owner, campaign)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetAffiliate(w http.ResponseWriter, r *http.Request) {
	var keys [3]crypto.PublicKey
	for i, name := range []string{"affiliate", "owner", "campaign"} {
		key, err := keyParam(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
			return
		}
		keys[i] = key
	}
	view, ok, err := affiliates.GetAffiliate(s.backend, s.programID, keys[0], keys[1], keys[2])
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "affiliate not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "event index disabled", nil)
		return
	}
	q := r.URL.Query()
	filter := indexer.Filter{
		Type:    strings.TrimSpace(q.Get("type")),
		Project: strings.TrimSpace(q.Get("project")),
		TxHash:  strings.TrimSpace(q.Get("tx")),
	}
	if raw := q.Get("after"); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "after must be an unsigned integer", nil)
			return
		}
		filter.AfterID = after
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", nil)
			return
		}
		filter.Limit = limit
	}
	entries, err := s.events.Query(r.Context(), filter)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	resp := EventsResponse{Events: entries}
	if resp.Events == nil {
		resp.Events = []indexer.Entry{}
	}
	if n := len(entries); n > 0 {
		resp.NextAfter = entries[n-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid faucet body", err.Error())
		return
	}
	if req.Lamports == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "lamports must be positive", nil)
		return
	}
	if limit := s.faucet.MaxLamportsPerCall; limit > 0 && req.Lamports > limit {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("lamports exceed per-call limit of %d", limit), nil)
		return
	}

	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()
	epoch := s.faucet.Quota.EpochAt(s.now().Unix())
	next, err := common.CheckQuota(s.faucet.Quota, epoch, s.quotas[req.Recipient], 1, req.Lamports)
	if err != nil {
		metrics.RPC().RecordThrottle("faucet_quota")
		writeFailure(w, err, nil)
		return
	}
	account, err := s.backend.Fund(req.Recipient, req.Lamports)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	s.quotas[req.Recipient] = next
	s.logger.Info("faucet funded account",
		"request_id", RequestIDFrom(r.Context()),
		slog.String("recipient", logging.MaskKey(req.Recipient.String())),
		slog.Uint64("lamports", req.Lamports))
	writeJSON(w, http.StatusOK, FaucetResponse{
		Recipient:    req.Recipient,
		Balance:      account.Balance,
		RequestsUsed: next.ReqCount,
		LamportsUsed: next.LamportsUsed,
		Epoch:        next.EpochID,
	})
}
