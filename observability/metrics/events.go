package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EventMetrics struct {
	indexed *prometheus.CounterVec
	failed  prometheus.Counter
}

var (
	eventsOnce     sync.Once
	eventsRegistry *EventMetrics
)

// Events returns the collectors tracking events written to the index.
func Events() *EventMetrics {
	eventsOnce.Do(func() {
		eventsRegistry = &EventMetrics{
			indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "events",
				Name:      "indexed_total",
				Help:      "Committed events persisted by the indexer segmented by type.",
			}, []string{"type"}),
			failed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "solpay",
				Subsystem: "events",
				Name:      "index_failures_total",
				Help:      "Events the indexer could not persist.",
			}),
		}
		prometheus.MustRegister(eventsRegistry.indexed, eventsRegistry.failed)
	})
	return eventsRegistry
}

func (m *EventMetrics) RecordIndexed(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.indexed.WithLabelValues(normalized).Inc()
}

func (m *EventMetrics) RecordFailure() {
	if m == nil {
		return
	}
	m.failed.Inc()
}
