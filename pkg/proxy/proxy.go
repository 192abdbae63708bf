// Package proxy composes the route table, the optional response cache, the
// wire codec, and the transports into the single execute operation exposed to
// the HTTP boundary.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jrepp/procgate/pkg/config"
	"github.com/jrepp/procgate/pkg/routing"
	"github.com/jrepp/procgate/pkg/transport"
	"github.com/jrepp/procgate/pkg/wire"
)

// ErrSerialize marks a request that could not be encoded into an envelope.
var ErrSerialize = errors.New("serialize request")

// Request is one inbound HTTP request as seen by the orchestrator.
type Request struct {
	Method  string
	Path    string // routing and cache key
	URI     string // full request URI forwarded to the worker
	Headers [][2]string
	Body    []byte
}

// Orchestrator routes requests to worker processes. Safe for concurrent use;
// each request is independent and failures never affect other in-flight or
// future requests. There are no retries: retry policy belongs to callers.
type Orchestrator struct {
	table     *routing.Table
	pipe      transport.Transport
	http      transport.Transport
	cache     *lru.Cache[string, *wire.Response]
	cacheOnly map[string]bool // nil caches every method
	metrics   MetricsCollector
	tracer    trace.Tracer
}

// Option configures the Orchestrator
type Option func(*Orchestrator) error

// WithCache enables the response cache with the given capacity. Entries are
// keyed by method and path only, and are never invalidated by a process
// restart.
func WithCache(capacity int) Option {
	return func(o *Orchestrator) error {
		if capacity <= 0 {
			return fmt.Errorf("cache capacity must be positive, got %d", capacity)
		}
		cache, err := lru.New[string, *wire.Response](capacity)
		if err != nil {
			return err
		}
		o.cache = cache
		return nil
	}
}

// WithCacheMethods restricts caching to the listed HTTP methods. Without this
// option every method is cached, which matches the key ignoring the body.
func WithCacheMethods(methods ...string) Option {
	return func(o *Orchestrator) error {
		o.cacheOnly = make(map[string]bool, len(methods))
		for _, m := range methods {
			o.cacheOnly[m] = true
		}
		return nil
	}
}

// WithPipeTransport overrides the unix-socket transport.
func WithPipeTransport(t transport.Transport) Option {
	return func(o *Orchestrator) error {
		o.pipe = t
		return nil
	}
}

// WithHTTPTransport overrides the loopback-HTTP transport.
func WithHTTPTransport(t transport.Transport) Option {
	return func(o *Orchestrator) error {
		o.http = t
		return nil
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *Orchestrator) error {
		o.metrics = mc
		return nil
	}
}

// New creates an orchestrator over a route table.
func New(table *routing.Table, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		table:   table,
		pipe:    transport.NewPipe(),
		http:    transport.NewHTTP(),
		metrics: NewNoopMetricsCollector(),
		tracer:  otel.Tracer("procgate/proxy"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Execute routes one request to its worker process and returns the decoded
// response. A cache hit returns immediately without touching the matcher,
// derivation, or transport.
func (o *Orchestrator) Execute(ctx context.Context, req *Request) (*wire.Response, error) {
	ctx, span := o.tracer.Start(ctx, "proxy.execute", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("url.path", req.Path),
	))
	defer span.End()

	key := req.Method + ":" + req.Path
	caching := o.cache != nil && o.cacheable(req.Method)

	if caching {
		if resp, ok := o.cache.Get(key); ok {
			o.metrics.CacheHit()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			slog.Debug("cache hit", "key", key)
			return resp, nil
		}
		o.metrics.CacheMiss()
	}

	proc, err := o.table.Find(req.Path)
	if err != nil {
		o.metrics.RequestFailed("no_route")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("process.id", proc.ID),
		attribute.String("process.mode", string(proc.Mode)),
	)

	payload, err := wire.EncodeRequest(&wire.Request{
		Method:  req.Method,
		URI:     req.URI,
		Headers: req.Headers,
		Body:    req.Body,
	})
	if err != nil {
		o.metrics.RequestFailed("serialize")
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}

	addr := proc.Address()
	tr := o.pipe
	if proc.Mode == config.ModeHTTP {
		tr = o.http
	}

	slog.Debug("routing request",
		"method", req.Method,
		"path", req.Path,
		"process_id", proc.ID,
		"mode", string(proc.Mode),
		"address", addr)

	respBytes, err := tr.Send(ctx, addr, payload)
	if err != nil {
		o.metrics.RequestFailed("transport")
		return nil, fmt.Errorf("process %q: %w", proc.ID, err)
	}

	resp, err := wire.DecodeResponse(respBytes)
	if err != nil {
		o.metrics.RequestFailed("decode")
		return nil, fmt.Errorf("process %q: %w", proc.ID, err)
	}

	o.metrics.RequestRouted(proc.ID)

	if caching {
		o.cache.Add(key, resp)
	}

	return resp, nil
}

func (o *Orchestrator) cacheable(method string) bool {
	if o.cacheOnly == nil {
		return true
	}
	return o.cacheOnly[method]
}
