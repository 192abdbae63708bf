// Package config loads and validates the static process manifest that
// declares the worker fleet: which executables to spawn, which route each one
// serves, and how the proxy talks to it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jrepp/procgate/pkg/address"
)

// Mode selects the transport used to reach a worker process.
type Mode string

const (
	// ModePipe routes requests over a local unix socket (the default).
	ModePipe Mode = "pipe"
	// ModeHTTP routes requests over a loopback HTTP connection.
	ModeHTTP Mode = "http"
)

// Address returns the concrete connection address for an endpoint name under
// this mode.
func (m Mode) Address(endpoint string) string {
	if m == ModeHTTP {
		return address.HTTP(endpoint)
	}
	return address.Pipe(endpoint)
}

// Process is one manifest-declared worker. Immutable after a successful load;
// shared read-only by the router, supervisor, and orchestrator.
type Process struct {
	// ID uniquely identifies the process within the manifest.
	ID string `yaml:"id"`

	// Executable is the path to the worker binary.
	Executable string `yaml:"executable"`

	// Args are passed to the executable in order.
	Args []string `yaml:"args"`

	// Route is the path pattern this worker serves. Must start with "/".
	// Supports exact ("/status"), prefix ("/api/"), and wildcard ("/api/*")
	// forms.
	Route string `yaml:"route"`

	// Endpoint is the logical name the connection address is derived from.
	Endpoint string `yaml:"endpoint"`

	// WorkDir is the working directory for the spawned process. Optional.
	WorkDir string `yaml:"workdir"`

	// Mode selects pipe or http transport. Defaults to pipe.
	Mode Mode `yaml:"mode"`
}

// Address returns the derived connection address for this process.
func (p *Process) Address() string {
	return p.Mode.Address(p.Endpoint)
}

// Validate checks a single process record. Violations fail the load; nothing
// is silently defaulted except the communication mode.
func (p *Process) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("process id cannot be empty")
	}
	if p.Executable == "" {
		return fmt.Errorf("process %q: executable cannot be empty", p.ID)
	}
	if p.Endpoint == "" {
		return fmt.Errorf("process %q: endpoint cannot be empty", p.ID)
	}
	if p.Route == "" || p.Route[0] != '/' {
		return fmt.Errorf("process %q: route must start with /, got %q", p.ID, p.Route)
	}

	switch p.Mode {
	case "":
		p.Mode = ModePipe
	case ModePipe, ModeHTTP:
	default:
		return fmt.Errorf("process %q: invalid mode: %q (must be pipe or http)", p.ID, p.Mode)
	}

	return nil
}

// CacheConfig controls the optional response cache in front of the transport.
type CacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool `yaml:"enabled"`

	// Capacity is the maximum number of cached responses. Defaults to 128.
	Capacity int `yaml:"capacity"`

	// Methods restricts caching to the listed HTTP methods. Empty means
	// every method is cached, which matches the key being method+path only.
	Methods []string `yaml:"methods"`
}

// Manifest is the root of the YAML configuration file.
type Manifest struct {
	// Listen is the proxy listen address. Defaults to ":8080".
	Listen string `yaml:"listen"`

	// OpsListen is the address for the health and metrics endpoints, kept
	// on a separate listener so they never shadow worker routes. Defaults
	// to ":9090".
	OpsListen string `yaml:"ops_listen"`

	// Cache configures the optional response cache.
	Cache CacheConfig `yaml:"cache"`

	// Processes declares the worker fleet, in routing priority order:
	// the first route that matches a request path wins.
	Processes []*Process `yaml:"processes"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest as a whole: per-process validity, unique ids,
// and loopback port collisions between http-mode endpoints. Colliding ports
// would silently double-bind at runtime, so they are rejected here.
func (m *Manifest) Validate() error {
	if m.Listen == "" {
		m.Listen = ":8080"
	}
	if m.OpsListen == "" {
		m.OpsListen = ":9090"
	}
	if m.Cache.Capacity == 0 {
		m.Cache.Capacity = 128
	}
	if m.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity cannot be negative, got %d", m.Cache.Capacity)
	}

	seen := make(map[string]bool, len(m.Processes))
	ports := make(map[int]string)

	for _, p := range m.Processes {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate process id: %q", p.ID)
		}
		seen[p.ID] = true

		if p.Mode == ModeHTTP {
			port := address.HTTPPort(p.Endpoint)
			if other, taken := ports[port]; taken {
				return fmt.Errorf("process %q: endpoint %q derives port %d, already used by process %q",
					p.ID, p.Endpoint, port, other)
			}
			ports[port] = p.ID
		}
	}

	return nil
}
