package supervisor

// MetricsCollector defines the interface for collecting supervisor metrics.
type MetricsCollector interface {
	// ProcessSpawned records a successful process start
	ProcessSpawned(id string)

	// ProcessSpawnFailed records a failed spawn attempt
	ProcessSpawnFailed(id string)

	// ProcessStopped records a process stop
	ProcessStopped(id string)

	// ProcessKillFailed records an OS-level termination failure
	ProcessKillFailed(id string)

	// RunningProcesses records the current number of running processes
	RunningProcesses(count int)
}

// noopMetricsCollector is a no-op implementation of MetricsCollector
type noopMetricsCollector struct{}

func (n *noopMetricsCollector) ProcessSpawned(id string)      {}
func (n *noopMetricsCollector) ProcessSpawnFailed(id string)  {}
func (n *noopMetricsCollector) ProcessStopped(id string)      {}
func (n *noopMetricsCollector) ProcessKillFailed(id string)   {}
func (n *noopMetricsCollector) RunningProcesses(count int)    {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return &noopMetricsCollector{}
}
