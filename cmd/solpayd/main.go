// Command solpayd runs a single-node affiliates ledger and serves its HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solpay/config"
	"solpay/observability/logging"
	telemetry "solpay/observability/otel"
	"solpay/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file (.toml, .yaml or .yml)")
	rpcAddr := flag.String("rpc", "", "Override the RPC listen address")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if addr := strings.TrimSpace(*rpcAddr); addr != "" {
		cfg.RPCAddress = addr
	}
	env := strings.TrimSpace(os.Getenv("SOLPAY_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("solpayd", env, logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
	})

	if err := run(cfg, env, logger); err != nil {
		logger.Error("solpayd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, env string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: env,
		ProgramID:   cfg.Program.ProgramID,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := newNode(cfg, db, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Info("solpayd starting",
		slog.String("program", cfg.Program.ProgramID),
		slog.String("rpc", cfg.RPCAddress),
		slog.Bool("faucet", cfg.EnableFaucet))
	if err := n.api.Serve(ctx, cfg.RPCAddress); err != nil {
		return fmt.Errorf("serve rpc: %w", err)
	}
	logger.Info("solpayd shut down cleanly")
	return nil
}
