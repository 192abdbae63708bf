package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsCollector implements MetricsCollector using Prometheus metrics
type PrometheusMetricsCollector struct {
	spawns       *prometheus.CounterVec
	spawnFails   *prometheus.CounterVec
	stops        *prometheus.CounterVec
	killFails    *prometheus.CounterVec
	runningGauge prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "supervisor"
	}

	pmc := &PrometheusMetricsCollector{
		registry: prometheus.NewRegistry(),
	}

	pmc.spawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_spawns_total",
			Help:      "Total number of successful process spawns",
		},
		[]string{"process_id"},
	)

	pmc.spawnFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_spawn_failures_total",
			Help:      "Total number of failed spawn attempts",
		},
		[]string{"process_id"},
	)

	pmc.stops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_stops_total",
			Help:      "Total number of process stops",
		},
		[]string{"process_id"},
	)

	pmc.killFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_kill_failures_total",
			Help:      "Total number of OS-level termination failures",
		},
		[]string{"process_id"},
	)

	pmc.runningGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_processes",
			Help:      "Current number of running processes",
		},
	)

	pmc.registry.MustRegister(
		pmc.spawns,
		pmc.spawnFails,
		pmc.stops,
		pmc.killFails,
		pmc.runningGauge,
	)

	return pmc
}

// Registry returns the Prometheus registry for exposing metrics
func (pmc *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return pmc.registry
}

// ProcessSpawned records a successful process start
func (pmc *PrometheusMetricsCollector) ProcessSpawned(id string) {
	pmc.spawns.WithLabelValues(id).Inc()
}

// ProcessSpawnFailed records a failed spawn attempt
func (pmc *PrometheusMetricsCollector) ProcessSpawnFailed(id string) {
	pmc.spawnFails.WithLabelValues(id).Inc()
}

// ProcessStopped records a process stop
func (pmc *PrometheusMetricsCollector) ProcessStopped(id string) {
	pmc.stops.WithLabelValues(id).Inc()
}

// ProcessKillFailed records an OS-level termination failure
func (pmc *PrometheusMetricsCollector) ProcessKillFailed(id string) {
	pmc.killFails.WithLabelValues(id).Inc()
}

// RunningProcesses records the current number of running processes
func (pmc *PrometheusMetricsCollector) RunningProcesses(count int) {
	pmc.runningGauge.Set(float64(count))
}
