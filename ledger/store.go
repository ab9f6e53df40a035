package ledger

import (
	"errors"
	"fmt"
	"math"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/storage"
)

var accountPrefix = []byte("account:")

func accountKey(key crypto.PublicKey) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.PublicKeyLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], key[:])
	return ethcrypto.Keccak256(buf)
}

type storedAccount struct {
	Owner   []byte
	Balance uint64
	Data    []byte
}

// Store persists accounts in a key-value database. Writes only happen through
// committed transactions and the development faucet.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Get loads the account stored under key. Missing accounts return ok=false.
func (s *Store) Get(key crypto.PublicKey) (*types.Account, bool, error) {
	raw, err := s.db.Get(accountKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("ledger: decode account %s: %w", key, err)
	}
	owner, err := crypto.PublicKeyFromBytes(stored.Owner)
	if err != nil {
		return nil, false, fmt.Errorf("ledger: decode account %s owner: %w", key, err)
	}
	return &types.Account{Owner: owner, Balance: stored.Balance, Data: stored.Data}, true, nil
}

// Fund credits lamports to a system-owned account, creating it when absent.
// It bypasses the transaction pipeline and is only meant for local networks.
func (s *Store) Fund(key crypto.PublicKey, amount uint64) (*types.Account, error) {
	account, ok, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		account = &types.Account{Owner: crypto.SystemProgramID}
	}
	if account.Owner != crypto.SystemProgramID {
		return nil, fmt.Errorf("%w: faucet target %s", ErrIllegalOwner, key)
	}
	if account.Balance > math.MaxUint64-amount {
		return nil, ErrBalanceOverflow
	}
	account.Balance += amount
	batch := s.db.NewBatch()
	if err := s.stage(batch, key, account); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	return account, nil
}

// stage queues the account write. Accounts without lamports are garbage
// collected regardless of their data.
func (s *Store) stage(batch storage.Batch, key crypto.PublicKey, account *types.Account) error {
	if account == nil || account.Balance == 0 {
		batch.Delete(accountKey(key))
		return nil
	}
	encoded, err := rlp.EncodeToBytes(storedAccount{
		Owner:   account.Owner.Bytes(),
		Balance: account.Balance,
		Data:    account.Data,
	})
	if err != nil {
		return err
	}
	batch.Put(accountKey(key), encoded)
	return nil
}
