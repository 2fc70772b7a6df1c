// Package metrics exposes Prometheus instrumentation for the server
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration observes per-request latency
	HTTPRequestDuration *prometheus.HistogramVec
	// ResolutionsTotal counts media resolution attempts by outcome
	ResolutionsTotal *prometheus.CounterVec
	// ResolutionDuration observes end-to-end resolution latency
	ResolutionDuration prometheus.Histogram
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to
// call more than once.
func Init() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelproxy",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled",
		}, []string{"method", "path", "status"})

		HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reelproxy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"})

		ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelproxy",
			Name:      "resolutions_total",
			Help:      "Media URL resolution attempts by outcome",
		}, []string{"status", "error_type"})

		ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reelproxy",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end media URL resolution latency",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		})
	})
}
