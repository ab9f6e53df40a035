package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"lukechampine.com/blake3"

	"solpay/crypto"
)

var (
	ErrInvalidSignature = errors.New("types: invalid transaction signature")
	ErrTooManyAccounts  = errors.New("types: too many instruction accounts")
)

// MaxInstructionAccounts bounds the account list carried by one instruction.
const MaxInstructionAccounts = 64

// AccountMeta declares one account an instruction touches and how.
type AccountMeta struct {
	Key        crypto.PublicKey `json:"key"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// Instruction targets a single program with an ordered account list and an
// opaque payload the program decodes.
type Instruction struct {
	ProgramID crypto.PublicKey `json:"programId"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}

// Signature pairs a signer key with its ed25519 signature over Message().
type Signature struct {
	Signer crypto.PublicKey `json:"signer"`
	Sig    []byte           `json:"signature"`
}

// Transaction wraps one instruction. The nonce only keeps otherwise identical
// submissions distinct; replay protection is not provided.
type Transaction struct {
	Instruction Instruction `json:"instruction"`
	Nonce       uint64      `json:"nonce"`
	Signatures  []Signature `json:"signatures,omitempty"`
}

// Message is the deterministic byte string every signer signs.
func (tx *Transaction) Message() ([]byte, error) {
	ix := tx.Instruction
	if len(ix.Accounts) > MaxInstructionAccounts {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(ix.Accounts))
	}
	buf := make([]byte, 0, 8+crypto.PublicKeyLength+1+len(ix.Accounts)*(crypto.PublicKeyLength+1)+4+len(ix.Data))
	buf = binary.LittleEndian.AppendUint64(buf, tx.Nonce)
	buf = append(buf, ix.ProgramID[:]...)
	buf = append(buf, byte(len(ix.Accounts)))
	for _, meta := range ix.Accounts {
		buf = append(buf, meta.Key[:]...)
		var flags byte
		if meta.IsSigner {
			flags |= 1
		}
		if meta.IsWritable {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ix.Data)))
	buf = append(buf, ix.Data...)
	return buf, nil
}

// Hash identifies the transaction. Signatures are not part of the hash.
func (tx *Transaction) Hash() ([32]byte, error) {
	msg, err := tx.Message()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(msg), nil
}

// Sign appends a signature for each key. Keys already present are re-signed.
func (tx *Transaction) Sign(keys ...*crypto.PrivateKey) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key == nil {
			return errors.New("types: nil signing key")
		}
		pub := key.PublicKey()
		sig := Signature{Signer: pub, Sig: key.Sign(msg)}
		replaced := false
		for i := range tx.Signatures {
			if tx.Signatures[i].Signer == pub {
				tx.Signatures[i] = sig
				replaced = true
				break
			}
		}
		if !replaced {
			tx.Signatures = append(tx.Signatures, sig)
		}
	}
	return nil
}

// VerifiedSigners checks every attached signature and returns the set of keys
// that signed. A single bad signature fails the whole transaction.
func (tx *Transaction) VerifiedSigners() (map[crypto.PublicKey]bool, error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	signers := make(map[crypto.PublicKey]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !crypto.Verify(sig.Signer, msg, sig.Sig) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, sig.Signer)
		}
		signers[sig.Signer] = true
	}
	return signers, nil
}
