// Package metrics registers the Prometheus instruments for the negotiation
// engine. Everything uses the default registry; main mounts promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NegotiationsCreated counts negotiation requests by kind.
	NegotiationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "housetab",
		Name:      "negotiations_created_total",
		Help:      "Negotiation requests created, by kind.",
	}, []string{"kind"})

	// NegotiationsResolved counts terminal transitions by kind and outcome
	// (approved, declined, cancelled, expired).
	NegotiationsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "housetab",
		Name:      "negotiations_resolved_total",
		Help:      "Negotiations reaching a terminal state, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// LedgerEntriesCreated counts payment records appended on acceptance.
	LedgerEntriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "housetab",
		Name:      "ledger_entries_created_total",
		Help:      "Ledger entries appended by accepted negotiations.",
	})

	// RealtimeEventsDropped counts events dropped because a subscriber was
	// too slow to drain its buffer.
	RealtimeEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "housetab",
		Name:      "realtime_events_dropped_total",
		Help:      "Real-time events dropped due to slow subscribers.",
	})
)
