// Package apps holds the applications bundled with the apibridge binary.
// Importing it registers them with the default registry.
package apps

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/gorilla/mux"
)

// References of the bundled applications
const (
	HelloRef   = "apps.hello.application"
	SessionRef = "apps.session.application"
)

func init() {
	registry.MustRegister(HelloRef, func() (http.Handler, error) {
		return NewRouter(), nil
	})
	registry.MustRegister(SessionRef, func() (http.Handler, error) {
		return NewSessionApp(NewRouter()), nil
	})
}

// pngPixel is a 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// NewRouter returns the demo application
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/hello", handleHello).Methods("GET", "HEAD")
	r.HandleFunc("/greet/{name}", handleGreet).Methods("GET")
	r.HandleFunc("/echo", handleEcho)
	r.HandleFunc("/cookies", handleCookies).Methods("GET")
	r.HandleFunc("/image", handleImage).Methods("GET")
	r.HandleFunc("/gzip", handleGzip).Methods("GET")
	r.HandleFunc("/panic", handlePanic)
	return r
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("hi"))
}

func handleGreet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fmt.Fprintf(w, "hello, %s", vars["name"])
}

// EchoResponse is what /echo reports about the request it received
type EchoResponse struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      string            `json:"query"`
	Host       string            `json:"host"`
	RemoteAddr string            `json:"remote_addr"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Environ    []string          `json:"environ,omitempty"`
	Session    string            `json:"session,omitempty"`
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := EchoResponse{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		Host:       r.Host,
		RemoteAddr: r.RemoteAddr,
		Headers:    make(map[string]string, len(r.Header)),
		Body:       string(body),
	}
	for name := range r.Header {
		resp.Headers[name] = r.Header.Get(name)
	}
	if env, ok := gateway.FromContext(r.Context()); ok {
		resp.Environ = env.Keys()
	}
	if s, ok := SessionFromContext(r.Context()); ok {
		resp.Session = s.ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func handleCookies(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "a", Value: "1", Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "b", Value: "2", Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "c", Value: "3", Path: "/"})
	w.Header().Add("Vary", "Accept")
	w.Header().Add("Vary", "Origin")
	w.Write([]byte("ok"))
}

func handleImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(pngPixel)
}

func handleGzip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	io.WriteString(gz, "compressed hello")
}

func handlePanic(w http.ResponseWriter, r *http.Request) {
	panic("demo application panic")
}
