package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reasoning oracle metrics
	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_oracle_calls_total",
			Help: "Total number of reasoning oracle calls",
		},
		[]string{"prompt", "outcome"},
	)

	OracleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_oracle_latency_seconds",
			Help:    "Reasoning oracle call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"prompt"},
	)

	// Fallbacks taken after oracle failures, by component
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_fallbacks_total",
			Help: "Total number of deterministic fallbacks applied",
		},
		[]string{"component"},
	)

	// Evidence source metrics
	SearchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_search_calls_total",
			Help: "Total number of evidence source queries",
		},
		[]string{"outcome"},
	)

	EvidenceCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_evidence_total",
			Help: "Evidence items produced by agents",
		},
		[]string{"agent"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_persistence_failures_total",
			Help: "Cache and vector index write failures",
		},
		[]string{"store"},
	)

	// Run metrics
	Iterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_iterations_total",
			Help: "Total research iterations completed",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_runs_completed_total",
			Help: "Runs completed by final verdict",
		},
		[]string{"verdict"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veritas_run_duration_seconds",
			Help:    "End-to-end run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)
)
