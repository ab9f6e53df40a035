package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solpay/core/types"
	"solpay/crypto"
)

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}
	cliNow     = time.Now
)

// apiError mirrors the error envelope returned by solpayd.
type apiError struct {
	Status      int     `json:"-"`
	Code        string  `json:"code"`
	Message     string  `json:"message"`
	ProgramCode *uint32 `json:"programCode,omitempty"`
}

func (e *apiError) Error() string {
	if e.ProgramCode != nil {
		return fmt.Sprintf("%s (program code %d): %s", e.Code, *e.ProgramCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func callAPI(method, path string, body any) (json.RawMessage, error) {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(encoded)
	}
	url := strings.TrimRight(rpcEndpoint, "/") + path
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var envelope struct {
			Error apiError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		envelope.Error.Status = resp.StatusCode
		return nil, &envelope.Error
	}
	return raw, nil
}

// submit signs ix with every key and posts the transaction.
func submit(ix types.Instruction, signers ...*crypto.PrivateKey) (json.RawMessage, error) {
	tx := &types.Transaction{Instruction: ix, Nonce: uint64(cliNow().UnixNano())}
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	return callAPI(http.MethodPost, "/v1/transactions", tx)
}

func writeResult(w io.Writer, result json.RawMessage) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(result), "", "  "); err != nil {
		_, _ = w.Write(result)
		fmt.Fprintln(w)
		return
	}
	pretty.WriteByte('\n')
	_, _ = pretty.WriteTo(w)
}

func printError(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
