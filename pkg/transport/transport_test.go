package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoUnixServer accepts connections on a unix socket and echoes each
// request payload back with a prefix, closing the connection to frame the
// response.
func echoUnixServer(t *testing.T) string {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "worker.sock")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				data, err := io.ReadAll(c)
				if err != nil {
					return
				}
				c.Write(append([]byte("echo:"), data...))
			}(conn)
		}
	}()

	return socket
}

func TestPipeSendRoundTrip(t *testing.T) {
	socket := echoUnixServer(t)

	resp, err := NewPipe().Send(context.Background(), socket, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:hello"), resp)
}

func TestPipeSendBinaryPayload(t *testing.T) {
	socket := echoUnixServer(t)

	payload := []byte{0x00, 0xff, 0x01, 0xfe}
	resp, err := NewPipe().Send(context.Background(), socket, payload)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("echo:"), payload...), resp)
}

func TestPipeSendConnectionFailed(t *testing.T) {
	_, err := NewPipe().Send(context.Background(), filepath.Join(t.TempDir(), "absent.sock"), []byte("x"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeConnectionFailed), "got: %v", err)
}

func TestHTTPSendSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		w.Write(append([]byte("got:"), body...))
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")
	resp, err := NewHTTP().Send(context.Background(), addr, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("got:payload"), resp)
}

func TestHTTPSendFullURLPassthrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	resp, err := NewHTTP().Send(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), resp)
}

func TestHTTPSendNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := NewHTTP().Send(context.Background(), ts.URL, []byte("x"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeSendFailed), "got: %v", err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSendConnectionFailed(t *testing.T) {
	// Port 1 is essentially never listening.
	_, err := NewHTTP().Send(context.Background(), "127.0.0.1:1", []byte("x"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeConnectionFailed), "got: %v", err)
}

func TestHTTPSendDeadlineExceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	_, err := NewHTTP().Send(ctx, ts.URL, []byte("x"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeTimeout), "got: %v", err)
}

func TestHTTPSendContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	_, err := NewHTTP().Send(ctx, ts.URL, nil)
	require.Error(t, err)
}
