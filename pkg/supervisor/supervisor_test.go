package supervisor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrepp/procgate/pkg/address"
	"github.com/jrepp/procgate/pkg/config"
)

func sleepProcess(id string) *config.Process {
	p := &config.Process{
		ID:         id,
		Executable: "sleep",
		Args:       []string{"60"},
		Route:      "/" + id,
		Endpoint:   id + "_pipe",
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func TestStartUnknownProcess(t *testing.T) {
	s := New()
	err := s.Start("ghost")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeProcessNotFound), "got: %v", err)
}

func TestStopUnknownProcess(t *testing.T) {
	s := New()
	err := s.Stop("ghost")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeProcessNotFound), "got: %v", err)
}

func TestStartStopLifecycle(t *testing.T) {
	s := New()
	defer s.Shutdown()

	s.Register(sleepProcess("worker"))
	assert.False(t, s.IsRunning("worker"))

	require.NoError(t, s.Start("worker"))
	assert.True(t, s.IsRunning("worker"))

	err := s.Start("worker")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeAlreadyRunning), "got: %v", err)

	require.NoError(t, s.Stop("worker"))
	assert.False(t, s.IsRunning("worker"))
}

func TestStopIsIdempotent(t *testing.T) {
	s := New()
	s.Register(sleepProcess("worker"))

	// Known but not running: succeeds as a no-op.
	assert.NoError(t, s.Stop("worker"))
	assert.NoError(t, s.Stop("worker"))
}

func TestStartAfterStop(t *testing.T) {
	s := New()
	defer s.Shutdown()

	s.Register(sleepProcess("worker"))
	require.NoError(t, s.Start("worker"))
	require.NoError(t, s.Stop("worker"))
	require.NoError(t, s.Start("worker"))
	assert.True(t, s.IsRunning("worker"))
}

func TestSpawnFailedLeavesEntryRegistered(t *testing.T) {
	s := New()

	p := &config.Process{
		ID:         "broken",
		Executable: "/nonexistent/binary",
		Route:      "/broken",
		Endpoint:   "broken_pipe",
	}
	require.NoError(t, p.Validate())
	s.Register(p)

	err := s.Start("broken")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeSpawnFailed), "got: %v", err)
	assert.False(t, s.IsRunning("broken"))

	// Entry is still registered: starting again retries the spawn.
	err = s.Start("broken")
	assert.True(t, IsErrorCode(err, ErrorCodeSpawnFailed), "got: %v", err)
}

func TestStartAllBestEffort(t *testing.T) {
	s := New()
	defer s.Shutdown()

	s.Register(sleepProcess("good"))
	broken := &config.Process{ID: "bad", Executable: "/nonexistent/binary", Route: "/bad", Endpoint: "bad_pipe"}
	require.NoError(t, broken.Validate())
	s.Register(broken)

	// The broken process must not abort the batch.
	s.StartAll()

	assert.True(t, s.IsRunning("good"))
	assert.False(t, s.IsRunning("bad"))
}

func TestStopAllBestEffort(t *testing.T) {
	s := New()
	s.Register(sleepProcess("a"))
	s.Register(sleepProcess("b"))
	s.StartAll()

	s.StopAll()
	assert.False(t, s.IsRunning("a"))
	assert.False(t, s.IsRunning("b"))
}

func TestShutdownClearsHandles(t *testing.T) {
	s := New()
	s.Register(sleepProcess("a"))
	require.NoError(t, s.Start("a"))

	s.Shutdown()
	assert.False(t, s.IsRunning("a"))
}

func TestHealth(t *testing.T) {
	s := New()
	defer s.Shutdown()

	s.Register(sleepProcess("up"))
	s.Register(sleepProcess("down"))
	require.NoError(t, s.Start("up"))

	health := s.Health()
	assert.True(t, health["up"])
	assert.False(t, health["down"])
}

func TestPipeAddressInjected(t *testing.T) {
	out := filepath.Join(t.TempDir(), "addr")

	p := &config.Process{
		ID:         "env-probe",
		Executable: "sh",
		Args:       []string{"-c", "printf %s \"$PIPE_ADDRESS\" > " + out},
		Route:      "/probe",
		Endpoint:   "probe_pipe",
	}
	require.NoError(t, p.Validate())

	s := New()
	defer s.Shutdown()
	s.Register(p)
	require.NoError(t, s.Start("env-probe"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && len(data) > 0
	}, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, address.Pipe("probe_pipe"), string(data))
}

func TestHTTPAddressInjected(t *testing.T) {
	out := filepath.Join(t.TempDir(), "addr")

	p := &config.Process{
		ID:         "env-probe",
		Executable: "sh",
		Args:       []string{"-c", "printf %s \"$HTTP_ADDRESS\" > " + out},
		Route:      "/probe",
		Endpoint:   "probe_http",
		Mode:       config.ModeHTTP,
	}
	require.NoError(t, p.Validate())

	s := New()
	defer s.Shutdown()
	s.Register(p)
	require.NoError(t, s.Start("env-probe"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && len(data) > 0
	}, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, address.HTTP("probe_http"), string(data))
}

// countingMetricsCollector records calls for assertions.
type countingMetricsCollector struct {
	mu         sync.Mutex
	spawns     int
	spawnFails int
	stops      int
	killFails  int
}

func (c *countingMetricsCollector) ProcessSpawned(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawns++
}

func (c *countingMetricsCollector) ProcessSpawnFailed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawnFails++
}

func (c *countingMetricsCollector) ProcessStopped(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *countingMetricsCollector) ProcessKillFailed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killFails++
}

func (c *countingMetricsCollector) RunningProcesses(count int) {}

func TestStopCountersPartition(t *testing.T) {
	// A stop is counted as either a stop or a kill failure, never both.
	mc := &countingMetricsCollector{}
	s := New(WithMetricsCollector(mc))
	defer s.Shutdown()

	s.Register(sleepProcess("m"))
	require.NoError(t, s.Start("m"))
	require.NoError(t, s.Stop("m"))

	mc.mu.Lock()
	defer mc.mu.Unlock()
	assert.Equal(t, 1, mc.stops)
	assert.Zero(t, mc.killFails)
}

func TestPrometheusCollectorCounts(t *testing.T) {
	pmc := NewPrometheusMetricsCollector("test")
	s := New(WithMetricsCollector(pmc))
	defer s.Shutdown()

	s.Register(sleepProcess("m"))
	require.NoError(t, s.Start("m"))
	require.NoError(t, s.Stop("m"))

	families, err := pmc.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_process_spawns_total"])
	assert.True(t, names["test_process_stops_total"])
}
