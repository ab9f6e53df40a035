package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/holiman/uint256"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/storage"
)

// MaxAccountSpace bounds the data length of a single account.
const MaxAccountSpace = 10 * 1024 * 1024

// Txn is the working overlay for one instruction. All reads and writes go
// through the accounts the instruction declared; nothing reaches the store
// until the runtime commits it.
type Txn struct {
	store   *Store
	rent    Rent
	now     time.Time
	program crypto.PublicKey
	metas   map[crypto.PublicKey]types.AccountMeta
	loaded  map[crypto.PublicKey]*types.Account
	before  map[crypto.PublicKey]uint64
	dirty   map[crypto.PublicKey]bool
	order   []crypto.PublicKey
	done    bool
}

func newTxn(store *Store, rent Rent, now time.Time, program crypto.PublicKey, accounts []types.AccountMeta) *Txn {
	metas := make(map[crypto.PublicKey]types.AccountMeta, len(accounts))
	for _, meta := range accounts {
		merged := metas[meta.Key]
		merged.Key = meta.Key
		merged.IsSigner = merged.IsSigner || meta.IsSigner
		merged.IsWritable = merged.IsWritable || meta.IsWritable
		metas[meta.Key] = merged
	}
	return &Txn{
		store:   store,
		rent:    rent,
		now:     now,
		program: program,
		metas:   metas,
		loaded:  make(map[crypto.PublicKey]*types.Account, len(metas)),
		before:  make(map[crypto.PublicKey]uint64, len(metas)),
		dirty:   make(map[crypto.PublicKey]bool, len(metas)),
	}
}

func (t *Txn) load(key crypto.PublicKey) (*types.Account, types.AccountMeta, error) {
	if t.done {
		return nil, types.AccountMeta{}, ErrTxnClosed
	}
	meta, ok := t.metas[key]
	if !ok {
		return nil, meta, fmt.Errorf("%w: %s", ErrAccountNotDeclared, key)
	}
	if account, ok := t.loaded[key]; ok {
		return account, meta, nil
	}
	account, exists, err := t.store.Get(key)
	if err != nil {
		return nil, meta, err
	}
	if !exists {
		account = &types.Account{Owner: crypto.SystemProgramID}
	}
	t.loaded[key] = account
	t.before[key] = account.Balance
	t.order = append(t.order, key)
	return account, meta, nil
}

func (t *Txn) writable(key crypto.PublicKey) (*types.Account, types.AccountMeta, error) {
	account, meta, err := t.load(key)
	if err != nil {
		return nil, meta, err
	}
	if !meta.IsWritable {
		return nil, meta, fmt.Errorf("%w: %s", ErrAccountReadonly, key)
	}
	return account, meta, nil
}

// Account returns a copy of the current state of a declared account. Accounts
// that hold neither lamports nor data report ok=false.
func (t *Txn) Account(key crypto.PublicKey) (*types.Account, bool, error) {
	account, _, err := t.load(key)
	if err != nil {
		return nil, false, err
	}
	if account.IsEmpty() {
		return nil, false, nil
	}
	return account.Clone(), true, nil
}

// CreateAccount allocates space bytes for target, assigns it to owner and
// funds it to lamports out of payer. A target that already holds lamports
// but no data is topped up rather than rejected so a prefunded address
// cannot be used to block creation.
func (t *Txn) CreateAccount(payer, target crypto.PublicKey, space int, lamports uint64, owner crypto.PublicKey) error {
	if space < 0 || space > MaxAccountSpace {
		return fmt.Errorf("%w: %d", ErrInvalidSpace, space)
	}
	if payer == target {
		return fmt.Errorf("%w: payer and target are the same account", ErrAccountInUse)
	}
	from, fromMeta, err := t.writable(payer)
	if err != nil {
		return err
	}
	if !fromMeta.IsSigner {
		return fmt.Errorf("%w: payer %s", ErrMissingSignature, payer)
	}
	if from.Owner != crypto.SystemProgramID || len(from.Data) > 0 {
		return fmt.Errorf("%w: payer %s", ErrSourceCarriesData, payer)
	}
	to, toMeta, err := t.writable(target)
	if err != nil {
		return err
	}
	if !toMeta.IsSigner && crypto.IsOnCurve(target) {
		return fmt.Errorf("%w: new account %s", ErrMissingSignature, target)
	}
	if to.Owner != crypto.SystemProgramID || len(to.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrAccountInUse, target)
	}
	var need uint64
	if to.Balance < lamports {
		need = lamports - to.Balance
	}
	if from.Balance < need {
		return fmt.Errorf("%w: payer %s has %d, needs %d", ErrInsufficientFunds, payer, from.Balance, need)
	}
	from.Balance -= need
	to.Balance += need
	to.Owner = owner
	to.Data = make([]byte, space)
	t.dirty[payer] = true
	t.dirty[target] = true
	return nil
}

// Transfer moves lamports between two accounts on behalf of a signing,
// system-owned source.
func (t *Txn) Transfer(from, to crypto.PublicKey, amount uint64) error {
	src, srcMeta, err := t.writable(from)
	if err != nil {
		return err
	}
	if !srcMeta.IsSigner {
		return fmt.Errorf("%w: transfer source %s", ErrMissingSignature, from)
	}
	if src.Owner != crypto.SystemProgramID || len(src.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrSourceCarriesData, from)
	}
	dst, _, err := t.writable(to)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, src.Balance, amount)
	}
	if from == to {
		return nil
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src.Balance -= amount
	dst.Balance += amount
	t.dirty[from] = true
	t.dirty[to] = true
	return nil
}

// Credit adds lamports to any writable account. The matching debit must come
// from the same transaction or the commit fails the conservation check.
func (t *Txn) Credit(key crypto.PublicKey, amount uint64) error {
	account, _, err := t.writable(key)
	if err != nil {
		return err
	}
	if account.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	account.Balance += amount
	t.dirty[key] = true
	return nil
}

// Debit removes lamports from an account owned by the invoking program.
func (t *Txn) Debit(key crypto.PublicKey, amount uint64) error {
	account, _, err := t.writable(key)
	if err != nil {
		return err
	}
	if account.Owner != t.program {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, key)
	}
	if account.Balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, key, account.Balance, amount)
	}
	account.Balance -= amount
	t.dirty[key] = true
	return nil
}

// SetData overwrites the data of an account owned by the invoking program.
// The length is fixed at creation.
func (t *Txn) SetData(key crypto.PublicKey, data []byte) error {
	account, _, err := t.writable(key)
	if err != nil {
		return err
	}
	if account.Owner != t.program {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, key)
	}
	if len(data) != len(account.Data) {
		return fmt.Errorf("%w: %s has %d bytes, got %d", ErrDataSizeChanged, key, len(account.Data), len(data))
	}
	copy(account.Data, data)
	t.dirty[key] = true
	return nil
}

// MinimumBalance returns the rent-exempt reserve for space bytes.
func (t *Txn) MinimumBalance(space int) uint64 {
	return t.rent.MinimumBalance(space)
}

// Now is the timestamp assigned to the transaction by the runtime.
func (t *Txn) Now() time.Time {
	return t.now
}

// Program is the identity of the program the transaction invokes.
func (t *Txn) Program() crypto.PublicKey {
	return t.program
}

// IsSigner reports whether key was declared as a verified signer.
func (t *Txn) IsSigner(key crypto.PublicKey) bool {
	return t.metas[key].IsSigner
}

func (t *Txn) commit(batch storage.Batch) error {
	if t.done {
		return ErrTxnClosed
	}
	t.done = true
	before := new(uint256.Int)
	after := new(uint256.Int)
	for _, key := range t.order {
		before.Add(before, uint256.NewInt(t.before[key]))
		after.Add(after, uint256.NewInt(t.loaded[key].Balance))
	}
	if !before.Eq(after) {
		return fmt.Errorf("%w: before %s after %s", ErrUnbalanced, before.Dec(), after.Dec())
	}
	for _, key := range t.order {
		if !t.dirty[key] {
			continue
		}
		account := t.loaded[key]
		if account.Balance > 0 && len(account.Data) > 0 && !t.rent.IsExempt(account.Balance, len(account.Data)) {
			return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFundsForRent, key, account.Balance, t.rent.MinimumBalance(len(account.Data)))
		}
		if err := t.store.stage(batch, key, account); err != nil {
			return err
		}
	}
	return nil
}

func (t *Txn) discard() {
	t.done = true
	t.loaded = nil
}
