package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AffiliatesMetrics tracks command outcomes and value moved by the affiliates
// program.
type AffiliatesMetrics struct {
	commands *prometheus.CounterVec
	lamports *prometheus.CounterVec
	projects prometheus.Gauge
	members  prometheus.Gauge
}

var (
	affiliatesOnce     sync.Once
	affiliatesRegistry *AffiliatesMetrics
)

func Affiliates() *AffiliatesMetrics {
	affiliatesOnce.Do(func() {
		affiliatesRegistry = &AffiliatesMetrics{
			commands: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "affiliates",
				Name:      "commands_total",
				Help:      "Count of processed affiliate program commands by outcome.",
			}, []string{"command", "outcome"}),
			lamports: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "affiliates",
				Name:      "lamports_moved_total",
				Help:      "Lamports moved by the affiliate program segmented by flow.",
			}, []string{"kind"}),
			projects: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "solpay",
				Subsystem: "affiliates",
				Name:      "projects_open",
				Help:      "Projects registered minus projects closed since process start.",
			}),
			members: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "solpay",
				Subsystem: "affiliates",
				Name:      "affiliates_open",
				Help:      "Affiliates enrolled minus affiliates closed since process start.",
			}),
		}
		prometheus.MustRegister(
			affiliatesRegistry.commands,
			affiliatesRegistry.lamports,
			affiliatesRegistry.projects,
			affiliatesRegistry.members,
		)
	})
	return affiliatesRegistry
}

func (m *AffiliatesMetrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	if command == "" {
		command = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *AffiliatesMetrics) AddLamports(kind string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.lamports.WithLabelValues(kind).Add(float64(amount))
}

func (m *AffiliatesMetrics) ProjectOpened() {
	if m == nil {
		return
	}
	m.projects.Inc()
}

func (m *AffiliatesMetrics) ProjectClosed() {
	if m == nil {
		return
	}
	m.projects.Dec()
}

func (m *AffiliatesMetrics) AffiliateOpened() {
	if m == nil {
		return
	}
	m.members.Inc()
}

func (m *AffiliatesMetrics) AffiliateClosed() {
	if m == nil {
		return
	}
	m.members.Dec()
}
