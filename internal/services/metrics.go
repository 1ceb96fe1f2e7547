package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"propintel/internal/config"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Analysis pipeline metrics
	AnalyzeRequests prometheus.Counter
	AnalyzeLatency  prometheus.Histogram
	AnalyzeErrors   *prometheus.CounterVec

	// Provider call metrics
	LLMRequests *prometheus.CounterVec
	LLMLatency  *prometheus.HistogramVec

	// Feed ingestion metrics
	RSSFetches *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. The usable-provider gauge is
// derived from the config snapshot so the dashboard can alert on lost
// providers without polling the status endpoint.
func InitMetrics(cfg *config.Config) *Metrics {
	metrics := &Metrics{
		AnalyzeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "propintel_analyze_requests_total",
			Help: "Total number of property analysis requests processed",
		}),

		AnalyzeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "propintel_analyze_duration_seconds",
			Help:    "Property analysis latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // LLM pipelines can run minutes
		}),

		AnalyzeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "propintel_analyze_errors_total",
			Help: "Total number of analysis errors by type",
		}, []string{"error_type"}),

		LLMRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "propintel_llm_requests_total",
			Help: "Total number of LLM calls by provider and outcome",
		}, []string{"provider", "outcome"}), // outcome: "success" or "error"

		LLMLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propintel_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds by provider",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		RSSFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "propintel_rss_fetches_total",
			Help: "Total number of RSS feed fetches by source and outcome",
		}, []string{"source", "outcome"}),
	}

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "propintel_usable_providers",
			Help: "Number of providers that are enabled and credentialed",
		},
		func() float64 {
			return float64(len(config.EnabledServices(cfg)))
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordAnalyzeRequest records an analysis request
func (m *Metrics) RecordAnalyzeRequest() {
	m.AnalyzeRequests.Inc()
}

// RecordAnalyzeLatency records analysis pipeline latency
func (m *Metrics) RecordAnalyzeLatency(seconds float64) {
	m.AnalyzeLatency.Observe(seconds)
}

// RecordAnalyzeError records an analysis error
func (m *Metrics) RecordAnalyzeError(errorType string) {
	m.AnalyzeErrors.WithLabelValues(errorType).Inc()
}

// RecordLLMRequest records an LLM call outcome
func (m *Metrics) RecordLLMRequest(provider string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.LLMRequests.WithLabelValues(provider, outcome).Inc()
	m.LLMLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordRSSFetch records a feed fetch outcome
func (m *Metrics) RecordRSSFetch(source string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.RSSFetches.WithLabelValues(source, outcome).Inc()
}
