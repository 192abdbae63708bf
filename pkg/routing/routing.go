// Package routing selects the destination process for a request path.
//
// Patterns come in three forms: exact ("/status"), trailing-slash prefix
// ("/api/"), and wildcard ("/api/*", which matches everything under the
// prefix including the bare prefix itself). Lookup is first-match in manifest
// declaration order; specific routes must be declared before catch-alls.
package routing

import (
	"errors"
	"strings"

	"github.com/jrepp/procgate/pkg/config"
)

// ErrNoRoute is returned by Find when no pattern matches the path.
var ErrNoRoute = errors.New("no route configured for path")

// Match reports whether a request path matches a route pattern.
func Match(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(path, pattern[:len(pattern)-2])
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}
	return false
}

// Table is an ordered route table built from the manifest process list.
type Table struct {
	processes []*config.Process
}

// NewTable builds a table preserving declaration order.
func NewTable(processes []*config.Process) *Table {
	return &Table{processes: processes}
}

// Find returns the first process whose route matches the path, or ErrNoRoute.
func (t *Table) Find(path string) (*config.Process, error) {
	for _, p := range t.processes {
		if Match(p.Route, path) {
			return p, nil
		}
	}
	return nil, ErrNoRoute
}

// Processes returns the table's process list in declaration order.
func (t *Table) Processes() []*config.Process {
	return t.processes
}
