// Package metrics provides the centralized Prometheus metrics registry for forecast runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(StateRunsTotal)
		registry.MustRegister(IntegrationsTotal)
		registry.MustRegister(PowerCacheHitsTotal)
		registry.MustRegister(PowerCacheMissesTotal)

		// Register gauge metrics
		registry.MustRegister(BipartisanProbability)
		registry.MustRegister(CDFTableSamples)

		// Register histogram metrics
		registry.MustRegister(StateDuration)
		registry.MustRegister(CDFTableBuildDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry, initializing it on
// first use.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
