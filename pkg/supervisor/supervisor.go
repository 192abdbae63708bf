// Package supervisor owns child-process lifecycles for the manifest-declared
// worker fleet. Each registered process is either Registered (no live handle)
// or Running (live handle); the supervisor does not poll child liveness, so a
// crashed worker still shows as running until it is stopped.
package supervisor

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/jrepp/procgate/pkg/config"
)

// Environment variable names carrying the derived address into the child.
// Exactly one is injected per process, selected by communication mode; the
// worker is responsible for binding on the address it receives.
const (
	PipeAddressEnv = "PIPE_ADDRESS"
	HTTPAddressEnv = "HTTP_ADDRESS"
)

// entry pairs a process configuration with its optional live handle. Entries
// are created on Register and destroyed only when the supervisor is torn down.
type entry struct {
	proc *config.Process
	cmd  *exec.Cmd // nil while not running
}

// Supervisor owns a keyed collection of process entries behind one exclusive
// lock. Bulk operations hold the lock for the whole batch, so concurrent
// individual calls serialize behind them; acceptable at small fleet sizes.
type Supervisor struct {
	mu      sync.Mutex
	entries map[string]*entry
	metrics MetricsCollector
}

// Option configures the Supervisor
type Option func(*Supervisor)

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(s *Supervisor) {
		s.metrics = mc
	}
}

// New creates a supervisor with no registered processes.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		entries: make(map[string]*entry),
		metrics: NewNoopMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register inserts or overwrites the entry for a process.
func (s *Supervisor) Register(p *config.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.ID] = &entry{proc: p}
}

// Start spawns the process with the derived address injected into its
// environment. Fails with ProcessNotFound for unknown ids, AlreadyRunning if
// a handle is already present, and SpawnFailed (entry stays Registered) if
// the OS cannot start it.
func (s *Supervisor) Start(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(id)
}

func (s *Supervisor) startLocked(id string) error {
	e, ok := s.entries[id]
	if !ok {
		return newError(ErrorCodeProcessNotFound, id, nil)
	}
	if e.cmd != nil {
		return newError(ErrorCodeAlreadyRunning, id, nil)
	}

	addr := e.proc.Address()
	envVar := PipeAddressEnv
	if e.proc.Mode == config.ModeHTTP {
		envVar = HTTPAddressEnv
	}

	slog.Info("starting process",
		"id", id,
		"executable", e.proc.Executable,
		"mode", string(e.proc.Mode),
		"address", addr)

	cmd := exec.Command(e.proc.Executable, e.proc.Args...)
	cmd.Env = append(os.Environ(), envVar+"="+addr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if e.proc.WorkDir != "" {
		cmd.Dir = e.proc.WorkDir
	}

	if err := cmd.Start(); err != nil {
		s.metrics.ProcessSpawnFailed(id)
		return newError(ErrorCodeSpawnFailed, id, err)
	}

	e.cmd = cmd
	// Reap the child when it exits so it never lingers as a zombie. State is
	// not updated here: the supervisor does not track liveness.
	go cmd.Wait()

	s.metrics.ProcessSpawned(id)
	s.metrics.RunningProcesses(s.runningLocked())
	slog.Info("process started", "id", id, "pid", cmd.Process.Pid)
	return nil
}

// Stop terminates the process. Unknown ids fail with ProcessNotFound;
// stopping a known process that is not running succeeds as a no-op. The
// handle is cleared even when the OS-level kill fails.
func (s *Supervisor) Stop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(id)
}

func (s *Supervisor) stopLocked(id string) error {
	e, ok := s.entries[id]
	if !ok {
		return newError(ErrorCodeProcessNotFound, id, nil)
	}
	if e.cmd == nil {
		slog.Warn("process is not running", "id", id)
		return nil
	}

	slog.Info("stopping process", "id", id, "pid", e.cmd.Process.Pid)

	err := e.cmd.Process.Kill()
	e.cmd = nil
	s.metrics.RunningProcesses(s.runningLocked())

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.metrics.ProcessKillFailed(id)
		return newError(ErrorCodeKillFailed, id, err)
	}

	s.metrics.ProcessStopped(id)
	slog.Info("process stopped", "id", id)
	return nil
}

// IsRunning reports whether the entry exists and holds a live handle.
func (s *Supervisor) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return ok && e.cmd != nil
}

// StartAll starts every registered process. Individual failures are logged
// and do not abort the batch; the bulk operation itself always succeeds.
func (s *Supervisor) StartAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		if err := s.startLocked(id); err != nil {
			slog.Error("failed to start process", "id", id, "error", err)
		}
	}
}

// StopAll stops every registered process, best-effort like StartAll.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		if err := s.stopLocked(id); err != nil {
			slog.Error("failed to stop process", "id", id, "error", err)
		}
	}
}

// Shutdown sends a fire-and-forget termination to every entry still holding
// a handle and clears it. It never blocks on child exit; this is leak
// avoidance, not a graceful shutdown protocol. Callers invoke it on every
// exit path once the supervisor has been acquired.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.cmd == nil {
			continue
		}
		slog.Info("cleaning up process", "id", id)
		_ = e.cmd.Process.Kill()
		e.cmd = nil
	}
	s.metrics.RunningProcesses(0)
}

// Health reports per-process running state, keyed by process id.
func (s *Supervisor) Health() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	health := make(map[string]bool, len(s.entries))
	for id, e := range s.entries {
		health[id] = e.cmd != nil
	}
	return health
}

func (s *Supervisor) runningLocked() int {
	n := 0
	for _, e := range s.entries {
		if e.cmd != nil {
			n++
		}
	}
	return n
}
