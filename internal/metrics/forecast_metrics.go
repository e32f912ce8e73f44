package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter metrics
var (
	StateRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voter_power",
		Name:      "state_runs_total",
		Help:      "Total number of per-state computations by mode and status",
	}, []string{"mode", "status"})
	IntegrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voter_power",
		Name:      "integrations_total",
		Help:      "Total number of correlated-error integrations performed",
	})
	PowerCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voter_power",
		Name:      "power_cache_hits_total",
		Help:      "Voter power lookups answered from the signature cache",
	})
	PowerCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voter_power",
		Name:      "power_cache_misses_total",
		Help:      "Voter power lookups that required a new integration",
	})
)

// Gauge metrics
var (
	BipartisanProbability = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "voter_power",
		Name:      "bipartisan_probability",
		Help:      "Latest probability of a good (non single-party) outcome per state",
	}, []string{"state"})
	CDFTableSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "voter_power",
		Name:      "cdf_table_samples",
		Help:      "Number of samples in the precomputed t CDF table, 0 when evaluating directly",
	})
)

// Histogram metrics
var (
	StateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voter_power",
		Name:      "state_duration_seconds",
		Help:      "Duration of per-state computations in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"mode"})
	CDFTableBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voter_power",
		Name:      "cdf_table_build_seconds",
		Help:      "Time spent building the t CDF table",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// RecordStateRun records a per-state computation.
// mode should be one of: "probability", "power"
// status should be one of: "success", "failure"
func RecordStateRun(mode, status string, durationSeconds float64) {
	StateRunsTotal.WithLabelValues(mode, status).Inc()
	StateDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordIntegration records one joint quadrature integration.
func RecordIntegration() {
	IntegrationsTotal.Inc()
}

// RecordCacheHit records a voter power cache hit.
func RecordCacheHit() {
	PowerCacheHitsTotal.Inc()
}

// RecordCacheMiss records a voter power cache miss.
func RecordCacheMiss() {
	PowerCacheMissesTotal.Inc()
}

// UpdateBipartisanProbability sets the latest good-outcome probability of a state.
func UpdateBipartisanProbability(state string, probability float64) {
	BipartisanProbability.WithLabelValues(state).Set(probability)
}

// RecordCDFTable records the size and build time of the CDF table.
func RecordCDFTable(samples int, durationSeconds float64) {
	CDFTableSamples.Set(float64(samples))
	if samples > 0 {
		CDFTableBuildDuration.Observe(durationSeconds)
	}
}
