// Package wire implements the envelope format exchanged with worker processes
// over a transport. Envelopes are JSON objects with base64-encoded bodies, so
// arbitrary binary payloads round-trip exactly.
//
// Decoding is deliberately lenient: a missing or malformed field falls back to
// its default instead of failing the whole envelope. Only a completely
// unparsable envelope is an error.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode marks an envelope that could not be parsed at all.
var ErrDecode = errors.New("undecodable envelope")

// Request is the envelope sent to a worker: one inbound HTTP request.
type Request struct {
	Method  string
	URI     string
	Headers [][2]string
	Body    []byte
}

// Response is the envelope a worker sends back.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

type requestEnvelope struct {
	Method  string      `json:"method"`
	URI     string      `json:"uri"`
	Headers [][2]string `json:"headers"`
	Body    string      `json:"body"`
}

type responseEnvelope struct {
	Status  int               `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// EncodeRequest serializes a request envelope.
func EncodeRequest(req *Request) ([]byte, error) {
	env := requestEnvelope{
		Method:  req.Method,
		URI:     req.URI,
		Headers: req.Headers,
		Body:    base64.StdEncoding.EncodeToString(req.Body),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// DecodeRequest parses a request envelope. Headers may be either the ordered
// [[key, value], ...] form or a flat object; both are accepted. Used by
// workers on the receiving end of a transport.
func DecodeRequest(data []byte) (*Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	req := &Request{}
	if v, ok := raw["method"]; ok {
		_ = json.Unmarshal(v, &req.Method)
	}
	if v, ok := raw["uri"]; ok {
		_ = json.Unmarshal(v, &req.URI)
	}
	if v, ok := raw["headers"]; ok {
		var pairs [][2]string
		if err := json.Unmarshal(v, &pairs); err == nil {
			req.Headers = pairs
		} else {
			var m map[string]string
			if err := json.Unmarshal(v, &m); err == nil {
				for k, val := range m {
					req.Headers = append(req.Headers, [2]string{k, val})
				}
			}
		}
	}
	if v, ok := raw["body"]; ok {
		var b64 string
		if err := json.Unmarshal(v, &b64); err == nil {
			if body, err := base64.StdEncoding.DecodeString(b64); err == nil {
				req.Body = body
			}
		}
	}
	return req, nil
}

// EncodeResponse serializes a response envelope. Used by workers.
func EncodeResponse(resp *Response) ([]byte, error) {
	env := responseEnvelope{
		Status:  resp.Status,
		Headers: resp.Headers,
		Body:    base64.StdEncoding.EncodeToString(resp.Body),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

// DecodeResponse parses a response envelope. Missing or malformed fields take
// their defaults: status 200, empty headers, empty body.
func DecodeResponse(data []byte) (*Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resp := &Response{
		Status:  200,
		Headers: map[string]string{},
	}

	if v, ok := raw["status"]; ok {
		var status int
		// Statuses outside the valid HTTP range count as malformed;
		// WriteHeader panics on them.
		if err := json.Unmarshal(v, &status); err == nil && status >= 100 && status <= 999 {
			resp.Status = status
		}
	}
	if v, ok := raw["headers"]; ok {
		var headers map[string]string
		if err := json.Unmarshal(v, &headers); err == nil && headers != nil {
			resp.Headers = headers
		}
	}
	if v, ok := raw["body"]; ok {
		var b64 string
		if err := json.Unmarshal(v, &b64); err == nil {
			if body, err := base64.StdEncoding.DecodeString(b64); err == nil {
				resp.Body = body
			}
		}
	}

	return resp, nil
}
