package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CardinalityEstimate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cardinality_estimate",
		Help: "The latest distinct-count estimate per audited column",
	}, []string{"table", "column", "source"}) // source: scan, window

	AuditRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardinality_audit_runs_total",
		Help: "The total number of completed distinct-count runs",
	}, []string{"table", "column", "source"})

	DegenerateRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardinality_degenerate_runs_total",
		Help: "The total number of runs aborted because thinning failed to shrink the sample",
	}, []string{"table", "column"})

	AuditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardinality_audit_duration_seconds",
		Help:    "Wall-clock duration of full-column audit scans",
		Buckets: prometheus.DefBuckets,
	})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardinality_alerts_total",
		Help: "The total number of cardinality alerts raised",
	}, []string{"table", "column", "reason"}) // reason: spike, degenerate
)
