// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CalculationsTotal counts completed deal calculations.
	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_calculations_total",
		Help: "Completed deal valuations by deal type and governing state.",
	}, []string{"deal_type", "state"})

	// CalculationDuration observes end-to-end calculation latency.
	CalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealdesk_calculation_duration_seconds",
		Help:    "Time to run resolver, tax, and payment engines for one deal.",
		Buckets: prometheus.DefBuckets,
	})

	// AuditSinkFailures counts audit writes that failed after the
	// calculation itself succeeded.
	AuditSinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealdesk_audit_sink_failures_total",
		Help: "Audit record writes or publishes that failed.",
	})

	// JurisdictionFallbacks counts rate lookups that degraded to the
	// state-only rate.
	JurisdictionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealdesk_jurisdiction_fallbacks_total",
		Help: "ZIP rate lookups that fell back to the state-only rate.",
	})
)
