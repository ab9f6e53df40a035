package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"solpay/core/types"
	"solpay/crypto"
	"solpay/indexer"
	"solpay/ledger"
	"solpay/native/common"
)

const (
	maxRequestBytes = 1 << 20 // 1 MiB
	shutdownTimeout = 10 * time.Second
)

// Backend is the ledger surface the API serves.
type Backend interface {
	Execute(ctx context.Context, tx *types.Transaction) (*ledger.Receipt, error)
	Account(key crypto.PublicKey) (*types.Account, bool, error)
	MinimumBalance(space int) uint64
	Fund(key crypto.PublicKey, amount uint64) (*types.Account, error)
}

// EventSource answers event history queries.
type EventSource interface {
	Query(ctx context.Context, f indexer.Filter) ([]indexer.Entry, error)
}

// FaucetConfig bounds development funding. The faucet route is only mounted
// when Enabled is set.
type FaucetConfig struct {
	Enabled            bool
	Quota              common.Quota
	MaxLamportsPerCall uint64
}

// Config captures the dependencies required to construct the server.
type Config struct {
	Backend   Backend
	Events    EventSource
	ProgramID crypto.PublicKey
	// RequestsPerSecond and Burst throttle each client address. A
	// non-positive rate disables throttling.
	RequestsPerSecond float64
	Burst             int
	Faucet            FaucetConfig
	Tracing           bool
	Logger            *slog.Logger
	Now               func() time.Time
}

// Server exposes the ledger over HTTP.
type Server struct {
	backend   Backend
	events    EventSource
	programID crypto.PublicKey
	faucet    FaucetConfig
	limiter   *rateLimiter
	logger    *slog.Logger
	now       func() time.Time

	quotaMu sync.Mutex
	quotas  map[crypto.PublicKey]common.QuotaNow

	handler http.Handler
}

// New constructs the router and its middleware chain.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("rpc: backend required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	srv := &Server{
		backend:   cfg.Backend,
		events:    cfg.Events,
		programID: cfg.ProgramID,
		faucet:    cfg.Faucet,
		logger:    cfg.Logger,
		now:       cfg.Now,
		quotas:    make(map[crypto.PublicKey]common.QuotaNow),
	}
	if cfg.RequestsPerSecond > 0 {
		srv.limiter = newRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	handler := http.Handler(srv.routes())
	if cfg.Tracing {
		handler = otelhttp.NewHandler(handler, "solpay-rpc")
	}
	srv.handler = handler
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		if s.limiter != nil {
			api.Use(s.limiter.middleware)
		}
		api.Post("/transactions", s.handleSubmitTransaction)
		api.Get("/accounts/{key}", s.handleGetAccount)
		api.Get("/projects/{owner}/{campaign}", s.handleGetProject)
		api.Get("/affiliates/{affiliate}/{owner}/{campaign}", s.handleGetAffiliate)
		api.Get("/events", s.handleListEvents)
		if s.faucet.Enabled {
			api.Post("/faucet", s.handleFaucet)
		}
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", slog.String("addr", listener.Addr().String()))
		errCh <- server.Serve(listener)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
