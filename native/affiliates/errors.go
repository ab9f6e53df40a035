package affiliates

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable numeric discriminant reported for program failures.
// Codes below 100 are program-specific; codes from 100 up mirror generic
// runtime failures.
type ErrorCode uint32

const (
	CodeActionNotAllowed ErrorCode = iota
	CodeUninitializedAccount
	CodeInvalidDerivedAddress
	CodeInvalidDataLength
	CodeAmountOverflow
	CodeProjectTitleTooLong
	CodeInvalidMaxAffiliateCount
	CodeProjectMaxAffiliateCountReached
	CodeMaxBelowCurrentCount
	CodeIncorrectTreasury
	CodeRewardRedeemMismatchedAccounts
	CodeAffiliateAccountBalanceNotEnough
	CodeInvalidAffiliateFeePercentage
)

const (
	CodeMissingSignature ErrorCode = 100 + iota
	CodeIllegalOwner
	CodeAlreadyInitialized
	CodeInvalidCommand
	CodeNotEnoughAccountKeys
	CodeIncorrectProgramID
	CodeArithmeticOverflow
	CodeArithmeticUnderflow
	CodeInvalidAccountData
	CodeIncorrectDestination
)

// Error is a program failure carrying its numeric code.
type Error struct {
	Code ErrorCode
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("affiliates: %s", e.msg)
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

var (
	ErrActionNotAllowed                = newError(CodeActionNotAllowed, "action not allowed")
	ErrUninitializedAccount            = newError(CodeUninitializedAccount, "account not initialized")
	ErrInvalidDerivedAddress           = newError(CodeInvalidDerivedAddress, "invalid derived address")
	ErrInvalidDataLength               = newError(CodeInvalidDataLength, "invalid account data length")
	ErrAmountOverflow                  = newError(CodeAmountOverflow, "amount overflow")
	ErrProjectTitleTooLong             = newError(CodeProjectTitleTooLong, "project title too long")
	ErrInvalidMaxAffiliateCount        = newError(CodeInvalidMaxAffiliateCount, "max affiliate count must be positive")
	ErrProjectMaxAffiliateCountReached = newError(CodeProjectMaxAffiliateCountReached, "project max affiliate count reached")
	ErrMaxBelowCurrentCount            = newError(CodeMaxBelowCurrentCount, "max affiliate count below current affiliate count")
	ErrIncorrectTreasury               = newError(CodeIncorrectTreasury, "incorrect treasury account")
	ErrRewardRedeemMismatchedAccounts  = newError(CodeRewardRedeemMismatchedAccounts, "affiliate and project accounts do not match")
	// ErrAffiliateAccountBalanceNotEnough is returned when the slot balance
	// above its rent-exempt reserve does not cover the reward target.
	ErrAffiliateAccountBalanceNotEnough = newError(CodeAffiliateAccountBalanceNotEnough, "affiliate account balance above rent reserve below reward target")
	ErrInvalidAffiliateFeePercentage    = newError(CodeInvalidAffiliateFeePercentage, "affiliate fee percentage out of range")

	ErrMissingSignature     = newError(CodeMissingSignature, "missing required signature")
	ErrIllegalOwner         = newError(CodeIllegalOwner, "account not owned by program")
	ErrAlreadyInitialized   = newError(CodeAlreadyInitialized, "account already initialized")
	ErrInvalidCommand       = newError(CodeInvalidCommand, "invalid command data")
	ErrNotEnoughAccountKeys = newError(CodeNotEnoughAccountKeys, "not enough account keys")
	ErrIncorrectProgramID   = newError(CodeIncorrectProgramID, "incorrect program id")
	ErrArithmeticOverflow   = newError(CodeArithmeticOverflow, "arithmetic overflow")
	ErrArithmeticUnderflow  = newError(CodeArithmeticUnderflow, "arithmetic underflow")
	ErrInvalidAccountData   = newError(CodeInvalidAccountData, "invalid account data")
	ErrIncorrectDestination = newError(CodeIncorrectDestination, "incorrect destination account")
)

var errNilLedger = errors.New("affiliates: ledger not configured")

// CodeOf extracts the program error code from err. ok is false for errors
// raised outside the program, such as ledger failures.
func CodeOf(err error) (ErrorCode, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return 0, false
}
