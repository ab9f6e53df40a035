package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	commits  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	funded   prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the lazily registered ledger runtime collectors.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			commits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "ledger",
				Name:      "commits_total",
				Help:      "Transactions executed by the ledger runtime segmented by program and outcome.",
			}, []string{"program", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "solpay",
				Subsystem: "ledger",
				Name:      "execute_duration_seconds",
				Help:      "Latency of transaction execution including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"program"}),
			funded: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "ledger",
				Name:      "faucet_lamports_total",
				Help:      "Lamports minted through the development faucet.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.commits,
			ledgerRegistry.duration,
			ledgerRegistry.funded,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveExecution(program string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if program == "" {
		program = "unknown"
	}
	outcome := "committed"
	if err != nil {
		outcome = "reverted"
	}
	m.commits.WithLabelValues(program, outcome).Inc()
	m.duration.WithLabelValues(program).Observe(elapsed.Seconds())
}

func (m *LedgerMetrics) AddFunded(amount uint64) {
	if m == nil {
		return
	}
	m.funded.Add(float64(amount))
}
