package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GlobalMetricsRegistry is the process-wide Prometheus registry that
// EngineEntry mirrors run counters and timers into alongside the
// per-run Metrics collection.
var GlobalMetricsRegistry *prometheus.Registry

func init() {
	ResetGlobalMetricsRegistry()
}

// ResetGlobalMetricsRegistry resets GlobalMetricsRegistry to its default
// value: a fresh registry with the Go collector and the three collectors
// below registered into it.
func ResetGlobalMetricsRegistry() {
	GlobalMetricsRegistry = prometheus.NewRegistry()
	GlobalMetricsRegistry.MustRegister(prometheus.NewGoCollector())
	GlobalMetricsRegistry.MustRegister(ChecksTotal)
	GlobalMetricsRegistry.MustRegister(CheckDuration)
	GlobalMetricsRegistry.MustRegister(BackendFailuresTotal)
}

// ChecksTotal counts the rule evaluations EngineEntry.Check runs (one per
// rule in a call) by outcome ("ok" or "error").
var ChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "formulacore_checks_total",
	Help: "Total number of Check calls, partitioned by outcome.",
}, []string{"outcome"})

// CheckDuration observes the wall-clock duration of each rule evaluation
// EngineEntry.Check runs.
var CheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "formulacore_check_duration_seconds",
	Help:    "Duration of Check calls.",
	Buckets: prometheus.DefBuckets,
})

// BackendFailuresTotal counts dispatch failures by backend kind.
var BackendFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "formulacore_backend_failures_total",
	Help: "Total number of backend dispatch failures, partitioned by backend kind.",
}, []string{"backend"})
