package affiliates

import (
	"fmt"

	"solpay/core/types"
	"solpay/crypto"
)

func requireSigner(meta types.AccountMeta) error {
	if !meta.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, meta.Key)
	}
	return nil
}

func requireAdmin(meta types.AccountMeta, admin crypto.PublicKey) error {
	if meta.Key != admin {
		return fmt.Errorf("%w: %s is not the administrator", ErrActionNotAllowed, meta.Key)
	}
	return nil
}

func requireProgramOwned(key crypto.PublicKey, account *types.Account, program crypto.PublicKey) error {
	if account == nil || account.Owner != program {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, key)
	}
	return nil
}

func requireTreasury(meta types.AccountMeta, treasury crypto.PublicKey) error {
	if meta.Key != treasury {
		return fmt.Errorf("%w: %s", ErrIncorrectTreasury, meta.Key)
	}
	return nil
}

func requireSystemProgram(meta types.AccountMeta) error {
	if meta.Key != crypto.SystemProgramID {
		return fmt.Errorf("%w: expected system program, got %s", ErrIncorrectProgramID, meta.Key)
	}
	return nil
}

func requireDerived(meta types.AccountMeta, program crypto.PublicKey, tag string, parts ...crypto.PublicKey) error {
	seeds := make([][]byte, len(parts))
	for i := range parts {
		seeds[i] = parts[i][:]
	}
	if ok, _ := crypto.ValidateDerived(meta.Key, tag, seeds, program); !ok {
		return fmt.Errorf("%w: %s for %s", ErrInvalidDerivedAddress, meta.Key, tag)
	}
	return nil
}
