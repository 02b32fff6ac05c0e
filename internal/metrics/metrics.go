package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Analysis pipeline metrics
	AnalysisOperationsCounter *prometheus.CounterVec
	PredictionDuration        prometheus.Histogram
)

// Init initializes Prometheus metrics with the configured name prefix
func Init(prefix string) {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AnalysisOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_analysis_operations_total",
			Help: "Total number of analysis operations",
		},
		[]string{"operation", "outcome"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_prediction_duration_seconds",
			Help:    "Duration of inference service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
}

// RecordAnalysisOperation increments the counter for analysis
// operations. No-op before Init.
func RecordAnalysisOperation(operation, outcome string) {
	if AnalysisOperationsCounter != nil {
		AnalysisOperationsCounter.WithLabelValues(operation, outcome).Inc()
	}
}

// TrackPrediction returns a function that records the duration of one
// inference call. No-op before Init.
func TrackPrediction() func() {
	start := time.Now()
	return func() {
		if PredictionDuration != nil {
			PredictionDuration.Observe(time.Since(start).Seconds())
		}
	}
}
