package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/crypto"
	"solpay/native/common"
	"solpay/observability/metrics"
	"solpay/storage"
)

// Program executes instructions addressed to its identity.
type Program interface {
	Process(ctx context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error

func (f ProgramFunc) Process(ctx context.Context, txn *Txn, accounts []types.AccountMeta, data []byte) error {
	return f(ctx, txn, accounts, data)
}

// Receipt reports the outcome of one executed transaction.
type Receipt struct {
	Hash    string         `json:"hash"`
	Program string         `json:"program"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Events  []*types.Event `json:"events,omitempty"`
}

type registration struct {
	name    string
	program Program
}

// Runtime serialises transaction execution over a Store. Each transaction
// runs in its own Txn overlay that is either committed as one batch or
// dropped entirely.
type Runtime struct {
	mu       sync.Mutex
	db       storage.Database
	store    *Store
	rent     Rent
	programs map[crypto.PublicKey]registration
	pauses   common.PauseView
	sink     events.Emitter
	staged   *events.Buffer
	nowFn    func() time.Time
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewRuntime builds a runtime with the system program pre-registered.
func NewRuntime(db storage.Database, rent Rent) *Runtime {
	r := &Runtime{
		db:       db,
		store:    NewStore(db),
		rent:     rent,
		programs: make(map[crypto.PublicKey]registration),
		sink:     events.NoopEmitter{},
		nowFn:    time.Now,
		logger:   slog.Default(),
		tracer:   otel.Tracer("solpay/ledger"),
	}
	r.programs[crypto.SystemProgramID] = registration{name: "system", program: systemProgram{emitter: r.Emitter()}}
	return r
}

// Register binds a program to an identity. Identities cannot be rebound.
func (r *Runtime) Register(id crypto.PublicKey, name string, program Program) error {
	if program == nil {
		return fmt.Errorf("ledger: nil program %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.programs[id]; ok {
		return fmt.Errorf("ledger: program id %s already registered as %q", id, existing.name)
	}
	r.programs[id] = registration{name: name, program: program}
	return nil
}

func (r *Runtime) SetPauses(p common.PauseView) {
	r.mu.Lock()
	r.pauses = p
	r.mu.Unlock()
}

// SetEventSink configures the downstream emitter that receives events of
// committed transactions.
func (r *Runtime) SetEventSink(e events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e == nil {
		r.sink = events.NoopEmitter{}
		return
	}
	r.sink = e
}

func (r *Runtime) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now == nil {
		r.nowFn = time.Now
		return
	}
	r.nowFn = now
}

func (r *Runtime) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	r.logger = logger
}

// Emitter returns the emitter programs should publish through. Events are
// staged on the executing transaction and dropped if it reverts.
func (r *Runtime) Emitter() events.Emitter {
	return stagedEmitter{r: r}
}

type stagedEmitter struct {
	r *Runtime
}

// Emit is only invoked from inside Execute, which already holds r.mu.
func (s stagedEmitter) Emit(evt events.Event) {
	if s.r.staged != nil {
		s.r.staged.Emit(evt)
	}
}

func (r *Runtime) Rent() Rent { return r.rent }

func (r *Runtime) Store() *Store { return r.store }

// Account reads committed state.
func (r *Runtime) Account(key crypto.PublicKey) (*types.Account, bool, error) {
	return r.store.Get(key)
}

// Fund mints lamports into a system-owned account. Development networks only.
func (r *Runtime) Fund(key crypto.PublicKey, amount uint64) (*types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, err := r.store.Fund(key, amount)
	if err != nil {
		return nil, err
	}
	metrics.Ledger().AddFunded(amount)
	return account, nil
}

// Execute verifies and runs a signed transaction. Any failure leaves the
// store untouched and no events are forwarded.
func (r *Runtime) Execute(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("ledger: nil transaction")
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	hashHex := hex.EncodeToString(hash[:])
	ctx, span := r.tracer.Start(ctx, "ledger.Execute", trace.WithAttributes(
		attribute.String("tx.hash", hashHex),
		attribute.String("tx.program", tx.Instruction.ProgramID.String()),
	))
	defer span.End()

	signers, err := tx.VerifiedSigners()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, meta := range tx.Instruction.Accounts {
		if meta.IsSigner && !signers[meta.Key] {
			err := fmt.Errorf("%w: %s", ErrMissingSignature, meta.Key)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.programs[tx.Instruction.ProgramID]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrProgramNotFound, tx.Instruction.ProgramID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	receipt := &Receipt{Hash: hashHex, Program: reg.name}
	started := time.Now()
	err = r.execute(ctx, reg, tx)
	metrics.Ledger().ObserveExecution(reg.name, err, time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("transaction reverted",
			slog.String("tx", hashHex),
			slog.String("program", reg.name),
			slog.Any("error", err))
		receipt.Status = "reverted"
		receipt.Error = err.Error()
		return receipt, err
	}

	receipt.Status = "committed"
	for _, evt := range r.staged.Events() {
		wire := evt.WithAttribute("tx", hashHex)
		receipt.Events = append(receipt.Events, wire)
		r.sink.Emit(events.Wrap(wire))
	}
	r.staged = nil
	r.logger.Debug("transaction committed",
		slog.String("tx", hashHex),
		slog.String("program", reg.name),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (r *Runtime) execute(ctx context.Context, reg registration, tx *types.Transaction) error {
	r.staged = &events.Buffer{}
	if err := common.Guard(r.pauses, reg.name); err != nil {
		r.staged = nil
		return err
	}
	ix := tx.Instruction
	accounts := append([]types.AccountMeta(nil), ix.Accounts...)
	data := append([]byte(nil), ix.Data...)
	txn := newTxn(r.store, r.rent, r.nowFn(), ix.ProgramID, accounts)
	if err := reg.program.Process(ctx, txn, accounts, data); err != nil {
		txn.discard()
		r.staged = nil
		return err
	}
	batch := r.db.NewBatch()
	if err := txn.commit(batch); err != nil {
		txn.discard()
		r.staged = nil
		return err
	}
	if err := batch.Write(); err != nil {
		r.staged = nil
		return err
	}
	return nil
}

// MinimumBalance returns the rent-exempt reserve for space bytes.
func (r *Runtime) MinimumBalance(space int) uint64 {
	return r.rent.MinimumBalance(space)
}
