package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/crypto"
	"solpay/native/common"
	"solpay/storage"
)

var testProgram = func() crypto.PublicKey {
	var key crypto.PublicKey
	copy(key[:], bytes.Repeat([]byte{0xF0}, crypto.PublicKeyLength))
	return key
}()

type fixture struct {
	rt     *Runtime
	sink   *events.Buffer
	alice  *crypto.PrivateKey
	bob    *crypto.PrivateKey
	handle func(ctx context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alice, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	bob, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	f := &fixture{
		rt:    NewRuntime(storage.NewMemDB(), DefaultRent()),
		sink:  &events.Buffer{},
		alice: alice,
		bob:   bob,
	}
	f.rt.SetEventSink(f.sink)
	f.rt.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	require.NoError(t, f.rt.Register(testProgram, "test", ProgramFunc(func(ctx context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error {
		return f.handle(ctx, txn, accounts, data)
	})))
	return f
}

func (f *fixture) execute(t *testing.T, ix types.Instruction, signers ...*crypto.PrivateKey) (*Receipt, error) {
	t.Helper()
	tx := &types.Transaction{Instruction: ix, Nonce: uint64(time.Now().UnixNano())}
	require.NoError(t, tx.Sign(signers...))
	return f.rt.Execute(context.Background(), tx)
}

func (f *fixture) balance(t *testing.T, key crypto.PublicKey) uint64 {
	t.Helper()
	acc, ok, err := f.rt.Account(key)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	return acc.Balance
}

func (f *fixture) programIx(metas ...types.AccountMeta) types.Instruction {
	return types.Instruction{ProgramID: testProgram, Accounts: metas}
}

func TestRentMinimumBalance(t *testing.T) {
	rent := DefaultRent()
	require.Equal(t, uint64(890_880), rent.MinimumBalance(0))
	require.Equal(t, uint64(3_090_240), rent.MinimumBalance(316))
	require.Equal(t, uint64(1_802_640), rent.MinimumBalance(131))
	require.True(t, rent.IsExempt(3_090_240, 316))
	require.False(t, rent.IsExempt(3_090_239, 316))

	huge := Rent{LamportsPerByteYear: ^uint64(0), ExemptionThreshold: 2}
	require.Equal(t, ^uint64(0), huge.MinimumBalance(10))
}

func TestSystemTransfer(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 5_000)
	require.NoError(t, err)

	receipt, err := f.execute(t, NewTransferInstruction(alice, bob, 1_200), f.alice)
	require.NoError(t, err)
	require.Equal(t, "committed", receipt.Status)
	require.Equal(t, "system", receipt.Program)
	require.Equal(t, uint64(3_800), f.balance(t, alice))
	require.Equal(t, uint64(1_200), f.balance(t, bob))

	emitted := f.sink.Events()
	require.Len(t, emitted, 1)
	require.Equal(t, TypeSystemTransfer, emitted[0].Type)
	require.Equal(t, receipt.Hash, emitted[0].Attributes["tx"])
	require.Equal(t, "1200", emitted[0].Attributes["lamports"])

	_, err = f.execute(t, NewTransferInstruction(alice, bob, 10_000), f.alice)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint64(3_800), f.balance(t, alice))
	require.Len(t, f.sink.Events(), 1)
}

func TestTransferDrainingSourcePurgesIt(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 700)
	require.NoError(t, err)
	_, err = f.execute(t, NewTransferInstruction(alice, bob, 700), f.alice)
	require.NoError(t, err)
	_, ok, err := f.rt.Account(alice)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExecuteVerifiesSignatures(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 5_000)
	require.NoError(t, err)

	// Declared signer without a signature.
	_, err = f.execute(t, NewTransferInstruction(alice, bob, 1), f.bob)
	require.ErrorIs(t, err, ErrMissingSignature)

	tx := &types.Transaction{Instruction: NewTransferInstruction(alice, bob, 1)}
	require.NoError(t, tx.Sign(f.alice))
	tx.Instruction.Data[4] = 2
	_, err = f.rt.Execute(context.Background(), tx)
	require.ErrorIs(t, err, types.ErrInvalidSignature)
	require.Equal(t, uint64(5_000), f.balance(t, alice))
}

func TestExecuteUnknownProgram(t *testing.T) {
	f := newFixture(t)
	ix := types.Instruction{ProgramID: f.bob.PublicKey()}
	_, err := f.execute(t, ix)
	require.ErrorIs(t, err, ErrProgramNotFound)
}

func TestRegisterRejectsDuplicateIdentity(t *testing.T) {
	f := newFixture(t)
	err := f.rt.Register(crypto.SystemProgramID, "other", ProgramFunc(func(context.Context, *Txn, []types.AccountMeta, []byte) error { return nil }))
	require.Error(t, err)
}

func TestFailedProgramLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	alice := f.alice.PublicKey()
	target, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)

	boom := errors.New("boom")
	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		if err := txn.CreateAccount(alice, target.PublicKey(), 16, txn.MinimumBalance(16), testProgram); err != nil {
			return err
		}
		f.rt.Emitter().Emit(events.Wrap(&types.Event{Type: "test.created"}))
		return boom
	}
	ix := f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: target.PublicKey(), IsSigner: true, IsWritable: true},
	)
	receipt, err := f.execute(t, ix, f.alice, target)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "reverted", receipt.Status)
	require.Equal(t, uint64(10_000_000), f.balance(t, alice))
	_, ok, err := f.rt.Account(target.PublicKey())
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, f.sink.Events())

	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		if err := txn.CreateAccount(alice, target.PublicKey(), 16, txn.MinimumBalance(16), testProgram); err != nil {
			return err
		}
		f.rt.Emitter().Emit(events.Wrap(&types.Event{Type: "test.created"}))
		return nil
	}
	receipt, err = f.execute(t, ix, f.alice, target)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	acc, ok, err := f.rt.Account(target.PublicKey())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testProgram, acc.Owner)
	require.Len(t, acc.Data, 16)
	require.Equal(t, DefaultRent().MinimumBalance(16), acc.Balance)
}

func TestCommitEnforcesConservationAndRent(t *testing.T) {
	f := newFixture(t)
	alice := f.alice.PublicKey()
	target, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)
	ix := f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: target.PublicKey(), IsSigner: true, IsWritable: true},
	)

	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		return txn.Credit(alice, 1)
	}
	_, err = f.execute(t, ix, f.alice, target)
	require.ErrorIs(t, err, ErrUnbalanced)

	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		return txn.CreateAccount(alice, target.PublicKey(), 64, 10, testProgram)
	}
	_, err = f.execute(t, ix, f.alice, target)
	require.ErrorIs(t, err, ErrInsufficientFundsForRent)
	require.Equal(t, uint64(10_000_000), f.balance(t, alice))
}

func TestTxnOwnershipRules(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)
	ix := f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: bob},
	)

	cases := []struct {
		name string
		run  func(*Txn) error
		want error
	}{
		{"debit foreign account", func(txn *Txn) error { return txn.Debit(alice, 1) }, ErrIllegalOwner},
		{"write foreign account", func(txn *Txn) error { return txn.SetData(alice, nil) }, ErrIllegalOwner},
		{"readonly account", func(txn *Txn) error { return txn.Credit(bob, 1) }, ErrAccountReadonly},
		{"undeclared account", func(txn *Txn) error {
			_, _, err := txn.Account(testProgram)
			return err
		}, ErrAccountNotDeclared},
		{"readonly target", func(txn *Txn) error {
			return txn.CreateAccount(alice, bob, 8, txn.MinimumBalance(8), testProgram)
		}, ErrAccountReadonly},
		{"negative space", func(txn *Txn) error {
			return txn.CreateAccount(alice, bob, -1, 0, testProgram)
		}, ErrInvalidSpace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error { return tc.run(txn) }
			_, err := f.execute(t, ix, f.alice)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateAccountRequiresTargetSignature(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)
	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		return txn.CreateAccount(alice, bob, 8, txn.MinimumBalance(8), testProgram)
	}
	ix := f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: bob, IsWritable: true},
	)
	_, err = f.execute(t, ix, f.alice)
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestProgramDataLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.alice.PublicKey()
	slot, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)
	ix := f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: slot.PublicKey(), IsSigner: true, IsWritable: true},
	)

	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		if err := txn.CreateAccount(alice, slot.PublicKey(), 4, txn.MinimumBalance(4), testProgram); err != nil {
			return err
		}
		return txn.SetData(slot.PublicKey(), []byte{1, 2, 3, 4})
	}
	_, err = f.execute(t, ix, f.alice, slot)
	require.NoError(t, err)

	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		return txn.SetData(slot.PublicKey(), []byte{1, 2, 3})
	}
	_, err = f.execute(t, ix, f.alice, slot)
	require.ErrorIs(t, err, ErrDataSizeChanged)

	// Draining a program account removes it from state.
	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		acc, _, err := txn.Account(slot.PublicKey())
		if err != nil {
			return err
		}
		if err := txn.Debit(slot.PublicKey(), acc.Balance); err != nil {
			return err
		}
		return txn.Credit(alice, acc.Balance)
	}
	_, err = f.execute(t, ix, f.alice, slot)
	require.NoError(t, err)
	_, ok, err := f.rt.Account(slot.PublicKey())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint64(10_000_000), f.balance(t, alice))
}

func TestFundRejectsProgramAccounts(t *testing.T) {
	f := newFixture(t)
	alice := f.alice.PublicKey()
	slot, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = f.rt.Fund(alice, 10_000_000)
	require.NoError(t, err)
	f.handle = func(_ context.Context, txn *Txn, _ []types.AccountMeta, _ []byte) error {
		return txn.CreateAccount(alice, slot.PublicKey(), 0, txn.MinimumBalance(0), testProgram)
	}
	_, err = f.execute(t, f.programIx(
		types.AccountMeta{Key: alice, IsSigner: true, IsWritable: true},
		types.AccountMeta{Key: slot.PublicKey(), IsSigner: true, IsWritable: true},
	), f.alice, slot)
	require.NoError(t, err)

	_, err = f.rt.Fund(slot.PublicKey(), 5)
	require.ErrorIs(t, err, ErrIllegalOwner)
}

func TestPausedProgramIsRejected(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.alice.PublicKey(), f.bob.PublicKey()
	_, err := f.rt.Fund(alice, 5_000)
	require.NoError(t, err)
	f.rt.SetPauses(common.PauseSet{"system": true})
	_, err = f.execute(t, NewTransferInstruction(alice, bob, 1), f.alice)
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.Equal(t, uint64(5_000), f.balance(t, alice))
}
