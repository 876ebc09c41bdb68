// Package metrics exposes Prometheus instrumentation for fetch
// decisions made by the sidecar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts guarded fetches by outcome: allowed, blocked,
	// failed.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchguard_fetches_total",
		Help: "Guarded fetches by outcome.",
	}, []string{"outcome"})

	// BlockedTotal counts validation rejections by stable reason text.
	BlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchguard_blocked_total",
		Help: "Validation rejections by reason.",
	}, []string{"reason"})

	// FetchDuration observes end-to-end fetch latency in seconds.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fetchguard_fetch_duration_seconds",
		Help:    "End-to-end guarded fetch latency.",
		Buckets: prometheus.DefBuckets,
	})
)
