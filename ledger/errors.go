package ledger

import "errors"

var (
	ErrInsufficientFunds        = errors.New("ledger: insufficient funds")
	ErrInsufficientFundsForRent = errors.New("ledger: account balance below rent-exempt minimum")
	ErrAccountInUse             = errors.New("ledger: account already in use")
	ErrAccountNotDeclared       = errors.New("ledger: account not declared by instruction")
	ErrAccountReadonly          = errors.New("ledger: account not writable")
	ErrIllegalOwner             = errors.New("ledger: account not owned by invoking program")
	ErrMissingSignature         = errors.New("ledger: missing required signature")
	ErrBalanceOverflow          = errors.New("ledger: balance overflow")
	ErrUnbalanced               = errors.New("ledger: lamports not conserved")
	ErrProgramNotFound          = errors.New("ledger: program not registered")
	ErrDataSizeChanged          = errors.New("ledger: account data length cannot change")
	ErrSourceCarriesData        = errors.New("ledger: transfer source carries data")
	ErrInvalidSpace             = errors.New("ledger: invalid account space")
	ErrTxnClosed                = errors.New("ledger: transaction already finalised")
)
