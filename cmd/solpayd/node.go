package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"solpay/config"
	"solpay/core/types"
	"solpay/indexer"
	"solpay/ledger"
	"solpay/native/affiliates"
	"solpay/observability/logging"
	"solpay/rpc"
	"solpay/storage"
)

// node bundles the long-lived components of one solpayd process.
type node struct {
	db      storage.Database
	runtime *ledger.Runtime
	engine  *affiliates.Engine
	index   *indexer.Indexer
	api     *rpc.Server
}

func newNode(cfg *config.Config, db storage.Database, logger *slog.Logger) (*node, error) {
	programCfg, err := cfg.Program.Affiliates()
	if err != nil {
		return nil, fmt.Errorf("program config: %w", err)
	}
	rt := ledger.NewRuntime(db, cfg.Rent.Ledger())
	rt.SetPauses(cfg.Pauses)
	rt.SetLogger(logger.With(slog.String("component", "ledger")))

	engine, err := affiliates.NewEngine(programCfg)
	if err != nil {
		return nil, err
	}
	engine.SetEmitter(rt.Emitter())
	engine.SetLogger(logger.With(slog.String("component", "affiliates")))
	err = rt.Register(programCfg.ProgramID, "affiliates", ledger.ProgramFunc(
		func(ctx context.Context, txn *ledger.Txn, accounts []types.AccountMeta, data []byte) error {
			return engine.Process(ctx, txn, accounts, data)
		}))
	if err != nil {
		return nil, err
	}

	n := &node{db: db, runtime: rt, engine: engine}
	var events rpc.EventSource
	if dsn := strings.TrimSpace(cfg.IndexDSN); dsn != "" {
		idx, err := indexer.Open(dsn)
		if err != nil {
			return nil, err
		}
		idx.SetLogger(logger.With(slog.String("component", "indexer")))
		rt.SetEventSink(idx)
		n.index = idx
		events = idx
		logger.Info("event index opened", logging.MaskField("index_dsn", dsn))
	} else {
		logger.Warn("event index disabled; /v1/events will be unavailable")
	}

	api, err := rpc.New(rpc.Config{
		Backend:           rt,
		Events:            events,
		ProgramID:         programCfg.ProgramID,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Faucet: rpc.FaucetConfig{
			Enabled:            cfg.EnableFaucet,
			Quota:              cfg.Faucet.Quota(),
			MaxLamportsPerCall: cfg.Faucet.MaxLamportsPerCall,
		},
		Tracing: cfg.Telemetry.Traces,
		Logger:  logger.With(slog.String("component", "rpc")),
	})
	if err != nil {
		n.Close()
		return nil, err
	}
	n.api = api
	return n, nil
}

// Close releases the index connection. The ledger database is owned by the
// caller.
func (n *node) Close() error {
	if n.index == nil {
		return nil
	}
	err := n.index.Close()
	n.index = nil
	return err
}
