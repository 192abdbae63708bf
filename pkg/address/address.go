// Package address derives concrete local connection addresses from logical
// endpoint names. Derivation is deterministic: the same endpoint name always
// maps to the same address, so the supervisor and the proxy agree on where a
// worker listens without any runtime coordination.
package address

import "fmt"

// Port range used for loopback HTTP workers. The hash folds an endpoint name
// into one of 1000 buckets, so distinct names can collide; manifest validation
// rejects colliding http-mode endpoints at load time.
const (
	httpPortBase    = 9000
	httpPortBuckets = 1000
)

// pipeDir is the well-known directory for worker unix sockets.
const pipeDir = "/tmp"

// Pipe returns the unix socket path for an endpoint name.
func Pipe(endpoint string) string {
	return fmt.Sprintf("%s/%s", pipeDir, endpoint)
}

// HTTPPort returns the deterministic loopback port for an endpoint name,
// in the range [9000, 9999]. The hash folds bytes with acc = acc*31 + b
// using uint32 wraparound arithmetic.
func HTTPPort(endpoint string) int {
	var acc uint32
	for i := 0; i < len(endpoint); i++ {
		acc = acc*31 + uint32(endpoint[i])
	}
	return httpPortBase + int(acc%httpPortBuckets)
}

// HTTP returns the loopback address "127.0.0.1:<port>" for an endpoint name.
func HTTP(endpoint string) string {
	return fmt.Sprintf("127.0.0.1:%d", HTTPPort(endpoint))
}
