package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"solpay/core/types"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/native/common"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ProgramCode is the affiliates error code when the program rejected
	// the transaction.
	ProgramCode *uint32 `json:"programCode,omitempty"`
	Data        any     `json:"data,omitempty"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, data any) {
	writeJSON(w, status, errorResponse{Error: APIError{Code: code, Message: message, Data: data}})
}

// classify maps an execution failure onto an HTTP status and a stable error
// code string.
func classify(err error) (int, APIError) {
	apiErr := APIError{Message: err.Error()}
	if code, ok := affiliates.CodeOf(err); ok {
		value := uint32(code)
		apiErr.Code = "program_error"
		apiErr.ProgramCode = &value
		return http.StatusUnprocessableEntity, apiErr
	}
	switch {
	case errors.Is(err, types.ErrInvalidSignature), errors.Is(err, ledger.ErrMissingSignature):
		apiErr.Code = "unauthorized"
		return http.StatusUnauthorized, apiErr
	case errors.Is(err, common.ErrModulePaused):
		apiErr.Code = "paused"
		return http.StatusServiceUnavailable, apiErr
	case errors.Is(err, ledger.ErrProgramNotFound):
		apiErr.Code = "program_not_found"
		return http.StatusNotFound, apiErr
	case errors.Is(err, common.ErrQuotaRequestsExceeded),
		errors.Is(err, common.ErrQuotaLamportCapExceeded),
		errors.Is(err, common.ErrQuotaCounterOverflow):
		apiErr.Code = "quota_exceeded"
		return http.StatusTooManyRequests, apiErr
	case isLedgerRejection(err):
		apiErr.Code = "ledger_error"
		return http.StatusBadRequest, apiErr
	default:
		apiErr.Code = "internal"
		return http.StatusInternalServerError, apiErr
	}
}

var ledgerRejections = []error{
	types.ErrTooManyAccounts,
	ledger.ErrInsufficientFunds,
	ledger.ErrInsufficientFundsForRent,
	ledger.ErrAccountInUse,
	ledger.ErrAccountNotDeclared,
	ledger.ErrAccountReadonly,
	ledger.ErrIllegalOwner,
	ledger.ErrBalanceOverflow,
	ledger.ErrUnbalanced,
	ledger.ErrDataSizeChanged,
	ledger.ErrSourceCarriesData,
	ledger.ErrInvalidSpace,
	ledger.ErrInvalidSystemInstruction,
}

func isLedgerRejection(err error) bool {
	for _, target := range ledgerRejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeFailure(w http.ResponseWriter, err error, data any) {
	status, apiErr := classify(err)
	apiErr.Data = data
	writeJSON(w, status, errorResponse{Error: apiErr})
}
