package proxy

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jrepp/procgate/pkg/routing"
	"github.com/jrepp/procgate/pkg/transport"
	"github.com/jrepp/procgate/pkg/wire"
)

// Handler is the inbound HTTP boundary: it accepts any method on any path and
// hands the request to the orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	engine       *gin.Engine
}

// NewHandler creates the boundary handler around an orchestrator.
func NewHandler(o *Orchestrator) *Handler {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	h := &Handler{orchestrator: o, engine: engine}

	// No routes are registered on the engine itself: every request falls
	// through to the proxy, whatever its method or path.
	engine.NoRoute(h.handleProxy)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) handleProxy(c *gin.Context) {
	reqID := uuid.NewString()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("failed to read request body", "request_id", reqID, "error", err)
		c.String(http.StatusInternalServerError, "failed to read request body")
		return
	}

	headers := make([][2]string, 0, len(c.Request.Header))
	for key, values := range c.Request.Header {
		for _, value := range values {
			headers = append(headers, [2]string{key, value})
		}
	}

	req := &Request{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		URI:     c.Request.URL.RequestURI(),
		Headers: headers,
		Body:    body,
	}

	resp, err := h.orchestrator.Execute(c.Request.Context(), req)
	if err != nil {
		status := classifyError(err)
		slog.Warn("proxy request failed",
			"request_id", reqID,
			"method", req.Method,
			"path", req.Path,
			"status", status,
			"error", err)
		c.String(status, "%v", err)
		return
	}

	for key, value := range resp.Headers {
		c.Writer.Header().Set(key, value)
	}
	c.Writer.WriteHeader(resp.Status)
	c.Writer.Write(resp.Body)
}

// classifyError maps orchestrator failures onto boundary status codes:
// unmatched paths 404, serialization failures 500, transport and
// deserialization failures 502.
func classifyError(err error) int {
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrSerialize):
		return http.StatusInternalServerError
	case errors.Is(err, wire.ErrDecode):
		return http.StatusBadGateway
	default:
		var te *transport.Error
		if errors.As(err, &te) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}
