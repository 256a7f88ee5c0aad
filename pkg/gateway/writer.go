package gateway

import (
	"bytes"
	"net/http"
	"sort"
)

// ResponseWriter records what an application writes for one call
type ResponseWriter struct {
	header      http.Header
	snapshot    http.Header
	status      int
	wroteHeader bool
	wroteBody   bool
	body        bytes.Buffer
}

// NewResponseWriter returns an empty recorder
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{header: make(http.Header)}
}

// Header implements http.ResponseWriter
func (w *ResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader implements http.ResponseWriter. Only the first call counts
// and headers are frozen at that point, as with a real connection.
func (w *ResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	w.snapshot = w.header.Clone()
	if w.snapshot == nil {
		w.snapshot = make(http.Header)
	}
}

// Write implements http.ResponseWriter. The first non-empty write sniffs
// a Content-Type when the application did not set one, also after an
// explicit WriteHeader.
func (w *ResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.wroteBody && len(p) > 0 {
		w.wroteBody = true
		if _, ok := w.snapshot["Content-Type"]; !ok && w.snapshot.Get("Transfer-Encoding") == "" && bodyAllowed(w.status) {
			w.snapshot.Set("Content-Type", http.DetectContentType(p))
		}
	}
	return w.body.Write(p)
}

// bodyAllowed mirrors the statuses for which net/http sends a body
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// Flush implements http.Flusher; everything is buffered until Result.
func (w *ResponseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}

// Result returns the recorded response. Header names are emitted in
// sorted order with each name's values in the order they were added.
func (w *ResponseWriter) Result() *Response {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	names := make([]string, 0, len(w.snapshot))
	for name := range w.snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]HeaderField, 0, len(names))
	for _, name := range names {
		for _, value := range w.snapshot[name] {
			fields = append(fields, HeaderField{Name: name, Value: value})
		}
	}

	return &Response{
		StatusCode: w.status,
		MIMEType:   MIMEType(w.snapshot.Get("Content-Type")),
		Headers:    fields,
		Body:       append([]byte(nil), w.body.Bytes()...),
	}
}
