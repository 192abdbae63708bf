package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting proxy metrics.
type MetricsCollector interface {
	// RequestRouted records a request dispatched to a process
	RequestRouted(processID string)

	// RequestFailed records a failed request by failure kind
	RequestFailed(kind string)

	// CacheHit records a response served from the cache
	CacheHit()

	// CacheMiss records a cache lookup that fell through to the transport
	CacheMiss()
}

// noopMetricsCollector is a no-op implementation of MetricsCollector
type noopMetricsCollector struct{}

func (n *noopMetricsCollector) RequestRouted(processID string) {}
func (n *noopMetricsCollector) RequestFailed(kind string)      {}
func (n *noopMetricsCollector) CacheHit()                      {}
func (n *noopMetricsCollector) CacheMiss()                     {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return &noopMetricsCollector{}
}

// PrometheusMetricsCollector implements MetricsCollector using Prometheus metrics
type PrometheusMetricsCollector struct {
	routed    *prometheus.CounterVec
	failed    *prometheus.CounterVec
	cacheHits prometheus.Counter
	cacheMiss prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "proxy"
	}

	pmc := &PrometheusMetricsCollector{
		registry: prometheus.NewRegistry(),
	}

	pmc.routed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_routed_total",
			Help:      "Total number of requests dispatched to a process",
		},
		[]string{"process_id"},
	)

	pmc.failed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_failed_total",
			Help:      "Total number of failed requests by failure kind",
		},
		[]string{"kind"},
	)

	pmc.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of responses served from the cache",
		},
	)

	pmc.cacheMiss = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache lookups that missed",
		},
	)

	pmc.registry.MustRegister(pmc.routed, pmc.failed, pmc.cacheHits, pmc.cacheMiss)

	return pmc
}

// Registry returns the Prometheus registry for exposing metrics
func (pmc *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return pmc.registry
}

// RequestRouted records a request dispatched to a process
func (pmc *PrometheusMetricsCollector) RequestRouted(processID string) {
	pmc.routed.WithLabelValues(processID).Inc()
}

// RequestFailed records a failed request by failure kind
func (pmc *PrometheusMetricsCollector) RequestFailed(kind string) {
	pmc.failed.WithLabelValues(kind).Inc()
}

// CacheHit records a response served from the cache
func (pmc *PrometheusMetricsCollector) CacheHit() {
	pmc.cacheHits.Inc()
}

// CacheMiss records a cache lookup that missed
func (pmc *PrometheusMetricsCollector) CacheMiss() {
	pmc.cacheMiss.Inc()
}
