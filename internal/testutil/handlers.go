package testutil

import (
	"io"
	"net/http"
)

// TextHandler answers every request with status and body as plain text
func TextHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// PanicHandler panics with value
func PanicHandler(value interface{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(value)
	})
}

// CaptureHandler stores the last request it served and its body
type CaptureHandler struct {
	Request *http.Request
	Body    []byte
	Reply   http.Handler
}

func (c *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.Request = r
	c.Body, _ = io.ReadAll(r.Body)
	if c.Reply != nil {
		c.Reply.ServeHTTP(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
