package affiliates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/crypto"
	"solpay/observability/metrics"
)

// Ledger is the account store a command executes against. Every call is
// scoped to the accounts the instruction declared and all effects are
// discarded if the command fails.
type Ledger interface {
	Account(key crypto.PublicKey) (*types.Account, bool, error)
	CreateAccount(payer, target crypto.PublicKey, space int, lamports uint64, owner crypto.PublicKey) error
	Transfer(from, to crypto.PublicKey, amount uint64) error
	Credit(key crypto.PublicKey, amount uint64) error
	Debit(key crypto.PublicKey, amount uint64) error
	SetData(key crypto.PublicKey, data []byte) error
	MinimumBalance(space int) uint64
	Now() time.Time
}

// Engine decodes affiliate program commands and dispatches them to their
// handlers.
type Engine struct {
	cfg     Config
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.AffiliatesMetrics
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.LinkagePolicy == "" {
		cfg.LinkagePolicy = LinkageStrict
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: metrics.Affiliates(),
	}, nil
}

// Config returns the deployment configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the logger used for command diagnostics.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Process decodes data and runs the command against ledger. Events are only
// emitted when the command succeeds.
func (e *Engine) Process(ctx context.Context, ledger Ledger, accounts []types.AccountMeta, data []byte) error {
	if ledger == nil {
		return errNilLedger
	}
	cmd, err := DecodeCommand(data)
	if err != nil {
		e.metrics.ObserveCommand("invalid", err)
		return err
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	inv := &invocation{
		cfg:      e.cfg,
		ledger:   ledger,
		accounts: newAccountIter(accounts),
		metrics:  e.metrics,
	}
	name := cmd.Tag().String()
	err = cmd.dispatch(inv)
	e.metrics.ObserveCommand(name, err)
	if err != nil {
		e.logger.Warn("affiliates command rejected", slog.String("command", name), slog.Any("error", err))
		return err
	}
	for _, evt := range inv.events {
		e.emitter.Emit(WrapEvent(evt))
	}
	inv.flushMetrics()
	e.logger.Debug("affiliates command applied", slog.String("command", name))
	return nil
}

// invocation carries the state of one command execution and implements
// commandHandler.
type invocation struct {
	cfg      Config
	ledger   Ledger
	accounts *accountIter
	metrics  *metrics.AffiliatesMetrics
	events   []*types.Event
	deferred []func(*metrics.AffiliatesMetrics)
}

func (inv *invocation) emit(evt *types.Event) {
	if evt != nil {
		inv.events = append(inv.events, evt)
	}
}

func (inv *invocation) observe(fn func(*metrics.AffiliatesMetrics)) {
	inv.deferred = append(inv.deferred, fn)
}

func (inv *invocation) flushMetrics() {
	if inv.metrics == nil {
		return
	}
	for _, fn := range inv.deferred {
		fn(inv.metrics)
	}
}

func (inv *invocation) now() int64 {
	return inv.ledger.Now().Unix()
}

// programAccount loads a slot that must exist and be owned by the program.
func (inv *invocation) programAccount(key crypto.PublicKey) (*types.Account, error) {
	account, ok, err := inv.ledger.Account(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIllegalOwner, key)
	}
	if err := requireProgramOwned(key, account, inv.cfg.ProgramID); err != nil {
		return nil, err
	}
	return account, nil
}

// loadProject returns the initialized project stored at key.
func (inv *invocation) loadProject(key crypto.PublicKey) (*types.Account, *ProjectRecord, error) {
	account, err := inv.programAccount(key)
	if err != nil {
		return nil, nil, err
	}
	rec, ok, err := LoadProject(account.Data)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: project %s", ErrUninitializedAccount, key)
	}
	return account, rec, nil
}

func (inv *invocation) loadAffiliate(key crypto.PublicKey) (*types.Account, *AffiliateRecord, error) {
	account, err := inv.programAccount(key)
	if err != nil {
		return nil, nil, err
	}
	rec, ok, err := LoadAffiliate(account.Data)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: affiliate %s", ErrUninitializedAccount, key)
	}
	return account, rec, nil
}

func (inv *invocation) storeProject(key crypto.PublicKey, rec *ProjectRecord) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return inv.ledger.SetData(key, data)
}

func (inv *invocation) storeAffiliate(key crypto.PublicKey, rec *AffiliateRecord) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return inv.ledger.SetData(key, data)
}

// prepareSlot inspects a record slot before creation. It reports whether the
// slot still needs to be allocated; an initialized record is rejected.
func (inv *invocation) prepareSlot(key crypto.PublicKey, initialized func([]byte) (bool, error)) (bool, error) {
	account, ok, err := inv.ledger.Account(key)
	if err != nil {
		return false, err
	}
	if !ok || (account.Owner == crypto.SystemProgramID && len(account.Data) == 0) {
		return true, nil
	}
	if account.Owner != inv.cfg.ProgramID {
		return false, fmt.Errorf("%w: %s", ErrIllegalOwner, key)
	}
	isInit, err := initialized(account.Data)
	if err != nil {
		return false, err
	}
	if isInit {
		return false, fmt.Errorf("%w: %s", ErrAlreadyInitialized, key)
	}
	return false, nil
}

// closeSlot zeroes a program-owned slot and moves its whole balance to dest.
// The balance is read after zeroing so the amount moved is exactly what the
// slot held.
func (inv *invocation) closeSlot(key, dest crypto.PublicKey) (uint64, error) {
	account, err := inv.programAccount(key)
	if err != nil {
		return 0, err
	}
	if err := inv.ledger.SetData(key, make([]byte, len(account.Data))); err != nil {
		return 0, err
	}
	account, ok, err := inv.ledger.Account(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	balance := account.Balance
	if err := inv.ledger.Debit(key, balance); err != nil {
		return 0, err
	}
	if err := inv.ledger.Credit(dest, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func rewardLamports(target uint8) (uint64, error) {
	amount := uint64(target) * LamportsPerRewardUnit
	if target != 0 && amount/uint64(target) != LamportsPerRewardUnit {
		return 0, ErrAmountOverflow
	}
	return amount, nil
}
