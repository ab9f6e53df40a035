package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/crypto"
)

// SystemTransferTag selects the lamport transfer instruction of the system
// program.
const SystemTransferTag uint32 = 2

const (
	// TypeSystemTransfer is emitted for every committed system transfer.
	TypeSystemTransfer = "system.transfer"
)

var ErrInvalidSystemInstruction = errors.New("ledger: invalid system instruction")

// NewTransferInstruction builds a system transfer of lamports from a signing
// wallet to any account.
func NewTransferInstruction(from, to crypto.PublicKey, lamports uint64) types.Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], SystemTransferTag)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return types.Instruction{
		ProgramID: crypto.SystemProgramID,
		Accounts: []types.AccountMeta{
			{Key: from, IsSigner: true, IsWritable: true},
			{Key: to, IsWritable: true},
		},
		Data: data,
	}
}

type systemProgram struct {
	emitter events.Emitter
}

func (p systemProgram) Process(_ context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error {
	if len(data) != 12 || binary.LittleEndian.Uint32(data[:4]) != SystemTransferTag {
		return ErrInvalidSystemInstruction
	}
	if len(accounts) < 2 {
		return fmt.Errorf("%w: transfer needs 2 accounts, got %d", ErrInvalidSystemInstruction, len(accounts))
	}
	lamports := binary.LittleEndian.Uint64(data[4:])
	from, to := accounts[0].Key, accounts[1].Key
	if err := txn.Transfer(from, to, lamports); err != nil {
		return err
	}
	p.emitter.Emit(events.Wrap(&types.Event{
		Type: TypeSystemTransfer,
		Attributes: map[string]string{
			"from":     from.String(),
			"to":       to.String(),
			"lamports": fmt.Sprintf("%d", lamports),
		},
	}))
	return nil
}
