// echo-worker is a minimal worker for exercising the gateway end to end. It
// binds on the address handed to it via PIPE_ADDRESS or HTTP_ADDRESS and
// echoes each request envelope back as a JSON response body.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/jrepp/procgate/pkg/supervisor"
	"github.com/jrepp/procgate/pkg/wire"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if addr := os.Getenv(supervisor.PipeAddressEnv); addr != "" {
		if err := servePipe(addr); err != nil {
			slog.Error("pipe worker failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if addr := os.Getenv(supervisor.HTTPAddressEnv); addr != "" {
		if err := serveHTTP(addr); err != nil {
			slog.Error("http worker failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Error("no address in environment",
		"expected_one_of", []string{supervisor.PipeAddressEnv, supervisor.HTTPAddressEnv})
	os.Exit(1)
}

// servePipe accepts unix-socket connections carrying one envelope each: the
// peer writes the request and half-closes, we reply and close.
func servePipe(path string) error {
	// A previous run may have left the socket file behind.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	defer ln.Close()

	slog.Info("echo worker listening", "transport", "pipe", "address", path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(conn)
	}
}

func handleConn(conn net.Conn) {
	defer conn.Close()

	data, err := io.ReadAll(conn)
	if err != nil {
		slog.Error("read request", "error", err)
		return
	}

	resp, err := echo(data)
	if err != nil {
		slog.Error("handle request", "error", err)
		return
	}

	if _, err := conn.Write(resp); err != nil {
		slog.Error("write response", "error", err)
	}
}

// serveHTTP answers the gateway's POSTed envelopes on a loopback listener.
func serveHTTP(addr string) error {
	slog.Info("echo worker listening", "transport", "http", "address", addr)

	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		resp, err := echo(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}))
}

// echo decodes a request envelope and returns a response envelope whose body
// describes what was received.
func echo(data []byte) ([]byte, error) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	slog.Info("echoing request", "method", req.Method, "uri", req.URI, "body_bytes", len(req.Body))

	body, err := json.Marshal(map[string]any{
		"method": req.Method,
		"uri":    req.URI,
		"body":   string(req.Body),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	return wire.EncodeResponse(&wire.Response{
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
}
