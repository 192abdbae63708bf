// Package transport moves one opaque request and one opaque response between
// the proxy and a worker process. Two implementations exist: a unix-socket
// transport and a loopback-HTTP transport. They are substitutable behind the
// same interface; the orchestrator picks one per request from the target
// process's communication mode, with no fallback between them.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Transport sends one request payload to a worker address and returns the
// response payload.
type Transport interface {
	Send(ctx context.Context, address string, payload []byte) ([]byte, error)
}

// Pipe is the unix-socket transport. It opens one connection per call, writes
// the full request, half-closes to signal end of output, then reads until the
// worker closes its side: message boundaries are connection closure, not a
// length prefix. There is no timeout; an unresponsive worker blocks the call
// indefinitely.
type Pipe struct{}

// NewPipe creates a unix-socket transport.
func NewPipe() *Pipe {
	return &Pipe{}
}

// Send implements Transport.
func (p *Pipe) Send(ctx context.Context, address string, payload []byte) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", address)
	if err != nil {
		return nil, newError(ErrorCodeConnectionFailed, fmt.Sprintf("connect to %s", address), err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return nil, newError(ErrorCodeSendFailed, fmt.Sprintf("write to %s", address), err)
	}

	// Half-close so the worker's read-to-EOF completes.
	if err := conn.(*net.UnixConn).CloseWrite(); err != nil {
		return nil, newError(ErrorCodeSendFailed, fmt.Sprintf("close write side of %s", address), err)
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, newError(ErrorCodeReceiveFailed, fmt.Sprintf("read from %s", address), err)
	}
	return resp, nil
}

// httpTimeout bounds a loopback-HTTP exchange end to end.
const httpTimeout = 30 * time.Second

// HTTP is the loopback-HTTP transport. It POSTs the payload to the worker
// address with a fixed 30-second timeout and returns the raw response body.
// Any non-2xx status is a send failure carrying the status code.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates a loopback-HTTP transport.
func NewHTTP() *HTTP {
	return &HTTP{
		client: &http.Client{Timeout: httpTimeout},
	}
}

// Send implements Transport.
func (h *HTTP) Send(ctx context.Context, address string, payload []byte) ([]byte, error) {
	url := address
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(ErrorCodeConnectionFailed, fmt.Sprintf("build request for %s", url), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, newError(ErrorCodeTimeout, fmt.Sprintf("request to %s", url), err)
		}
		return nil, newError(ErrorCodeConnectionFailed, fmt.Sprintf("request to %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(ErrorCodeSendFailed,
			fmt.Sprintf("request to %s failed with status %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrorCodeReceiveFailed, fmt.Sprintf("read response from %s", url), err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
