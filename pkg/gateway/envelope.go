package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultMIMEType is assumed for responses without a Content-Type
const DefaultMIMEType = "text/plain"

// textMIMETypes are sent as literal text in addition to text/*
var textMIMETypes = map[string]bool{
	"application/json":         true,
	"application/javascript":   true,
	"application/xml":          true,
	"application/vnd.api+json": true,
	"image/svg+xml":            true,
}

// HeaderField is one response header line
type HeaderField struct {
	Name  string
	Value string
}

// Response is an application's answer to one call
type Response struct {
	StatusCode int
	MIMEType   string
	Headers    []HeaderField
	Body       []byte
}

// Header returns the first value recorded for name, matched case-insensitively
func (r *Response) Header(name string) string {
	for _, f := range r.Headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// HeaderValue is a header's value in an envelope: a single string, or a
// list when the header repeated.
type HeaderValue []string

// MarshalJSON emits a string for one value and a list otherwise
func (v HeaderValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// UnmarshalJSON accepts either form
func (v *HeaderValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = HeaderValue{s}
	return nil
}

// Envelope is the gateway's response document
type Envelope struct {
	StatusCode int                                          `json:"statusCode"`
	Headers    *orderedmap.OrderedMap[string, HeaderValue] `json:"headers"`
	Body       string                                       `json:"body"`
	Encoding   string                                       `json:"encoding,omitempty"`
}

// NewEnvelope returns an envelope with no headers and an empty body
func NewEnvelope(status int) *Envelope {
	return &Envelope{
		StatusCode: status,
		Headers:    orderedmap.New[string, HeaderValue](),
	}
}

// AddHeader appends value to name, turning the entry into a list on repeat
func (e *Envelope) AddHeader(name, value string) {
	if e.Headers == nil {
		e.Headers = orderedmap.New[string, HeaderValue]()
	}
	current, ok := e.Headers.Get(name)
	if !ok {
		e.Headers.Set(name, HeaderValue{value})
		return
	}
	e.Headers.Set(name, append(current, value))
}

// Header expands the envelope headers into an http.Header
func (e *Envelope) Header() http.Header {
	h := make(http.Header)
	if e.Headers == nil {
		return h
	}
	for pair := e.Headers.Oldest(); pair != nil; pair = pair.Next() {
		for _, value := range pair.Value {
			h.Add(pair.Key, value)
		}
	}
	return h
}

// DecodedBody returns the body bytes, undoing base64 when marked
func (e *Envelope) DecodedBody() ([]byte, error) {
	if e.Encoding == EncodingBase64 {
		return base64.StdEncoding.DecodeString(e.Body)
	}
	return []byte(e.Body), nil
}

// MIMEType extracts the lowercased media type from a Content-Type value
func MIMEType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsTextMIME reports whether a media type is sent as literal text
func IsTextMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") || textMIMETypes[mimeType]
}

// Repack converts an application response into the gateway envelope.
// The body is base64 encoded unless its media type is textual and no
// Content-Encoding was applied.
//
// Headers are added in the order resp lists them. Responses recorded by
// ResponseWriter list names in sorted order, since http.Header does not
// remember insertion order; values of a repeated name keep their order.
func Repack(resp *Response) *Envelope {
	env := NewEnvelope(resp.StatusCode)
	for _, f := range resp.Headers {
		env.AddHeader(f.Name, f.Value)
	}

	if len(resp.Body) == 0 {
		return env
	}

	mimeType := resp.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	if IsTextMIME(mimeType) && resp.Header("Content-Encoding") == "" {
		env.Body = decodeUTF8(resp.Body)
		return env
	}

	env.Body = base64.StdEncoding.EncodeToString(resp.Body)
	env.Encoding = EncodingBase64
	return env
}
