package http

import (
	"net/http"
)

// Transport implements http.RoundTripper with Lambda support
type Transport struct {
	*Client
}

// NewTransport creates a new transport with Lambda support
func NewTransport(opts ...Option) (*Transport, error) {
	client, err := NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &Transport{Client: client}, nil
}

// RoundTrip implements the http.RoundTripper interface
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Do(req)
}

// NewHTTPClient returns a plain *http.Client whose transport understands
// lambda:// URLs
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	transport, err := NewTransport(opts...)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}
