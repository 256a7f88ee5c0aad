// Package gateway translates serverless gateway events into net/http
// requests and recorded responses back into gateway envelopes.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/brendan.keane/apibridge/internal/errors"
)

// EncodingBase64 marks a base64 encoded body in events and envelopes
const EncodingBase64 = "base64"

// Invocation is the payload the platform hands to the function.
// The gateway event travels JSON-encoded inside Body.
type Invocation struct {
	Body string `json:"body"`
}

// Event is a single gateway request
type Event struct {
	Headers  map[string]string `json:"headers,omitempty"`
	Path     string            `json:"path"`
	Body     string            `json:"body,omitempty"`
	Encoding string            `json:"encoding,omitempty"`
	Method   string            `json:"method,omitempty"`
	RealIP   string            `json:"x-real-ip,omitempty"`

	raw []byte
}

// ParseInvocation decodes the event carried by an invocation
func ParseInvocation(inv Invocation) (*Event, error) {
	if inv.Body == "" {
		return nil, errors.New(errors.ErrorTypeInput, "invocation carries no event").
			WithContext("field", "body")
	}
	return DecodeEvent([]byte(inv.Body))
}

// DecodeEvent decodes a raw gateway event
func DecodeEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "malformed gateway event").
			WithContext("field", "event")
	}
	ev.raw = append([]byte(nil), raw...)
	return &ev, nil
}

// Raw returns the event exactly as it was received, or its encoding
// when the event was built in code
func (e *Event) Raw() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTranslation, "failed to encode gateway event")
	}
	return raw, nil
}

// Header returns the canonicalized header set. Lookups on the result are
// case-insensitive; when two keys differ only in case the first in sorted
// key order wins for Get.
func (e *Event) Header() http.Header {
	h := make(http.Header, len(e.Headers))
	for _, name := range sortedKeys(e.Headers) {
		h.Add(name, e.Headers[name])
	}
	return h
}

// RequestMethod returns the event method, GET when absent
func (e *Event) RequestMethod() string {
	if e.Method == "" {
		return http.MethodGet
	}
	return e.Method
}

// Invocation wraps the event in an invocation payload
func (e *Event) Invocation() (Invocation, error) {
	raw, err := e.Raw()
	if err != nil {
		return Invocation{}, err
	}
	return Invocation{Body: string(raw)}, nil
}
