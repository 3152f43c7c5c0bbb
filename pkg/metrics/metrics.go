// Package metrics exposes the feed/quoting core's counters as Prometheus
// collectors, registered on import via promauto so callers never touch a
// registry directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconnectsTotal counts every connection-manager reconnect attempt,
// labeled by venue.
var ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sequex",
	Subsystem: "feed",
	Name:      "reconnects_total",
	Help:      "Connection manager reconnect attempts, by venue.",
}, []string{"venue"})

// SequenceGapsTotal counts every book synchronizer continuity violation
// that triggered a resync, labeled by instrument.
var SequenceGapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sequex",
	Subsystem: "book",
	Name:      "sequence_gaps_total",
	Help:      "Book synchronizer sequence-gap resync triggers, by instrument.",
}, []string{"instrument"})

// QuoteDispatchTotal counts every QuotePair the quoting engine dispatched
// to a Market Maker (i.e. active and not paused), labeled by instrument.
var QuoteDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sequex",
	Subsystem: "quoting",
	Name:      "quote_dispatch_total",
	Help:      "QuotePairs dispatched from the quoting engine to a Market Maker.",
}, []string{"instrument"})
