package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Request builds the synchronous net/http call described by the
// environment. The environment is reachable from the request context
// through FromContext.
func (e *Environ) Request(ctx context.Context) (*http.Request, error) {
	pathInfo := e.Native(KeyPathInfo)
	if pathInfo == "" {
		pathInfo = "/"
	}
	u := &url.URL{Path: pathInfo}
	if p, err := url.PathUnescape(pathInfo); err == nil {
		u.Path = p
		u.RawPath = pathInfo
	}

	// The application parses the query itself, so it gets the raw form.
	rawQuery := e.Native(KeyQueryString)
	if uri := e.Native(KeyRequestURI); uri != "" {
		_, rawQuery, _ = strings.Cut(uri, "?")
	}
	u.RawQuery = rawQuery

	requestURI := pathInfo
	if rawQuery != "" {
		requestURI += "?" + rawQuery
	}

	header := make(http.Header)
	for _, key := range e.Keys() {
		if !strings.HasPrefix(key, HeaderPrefix) {
			continue
		}
		header.Add(HeaderName(key), e.Native(key))
	}
	if ct := e.Native(KeyContentType); ct != "" {
		header.Set("Content-Type", ct)
	}

	contentLength := 0
	if v, ok := e.Get(KeyContentLength); ok {
		contentLength, _ = v.Int()
	}

	var body io.ReadCloser = http.NoBody
	if v, ok := e.Get(KeyInput); ok && contentLength > 0 {
		if r, ok := v.Reader(); ok {
			body = io.NopCloser(r)
		}
	}

	host := header.Get("Host")
	if host == "" {
		host = e.Native(KeyServerName)
	}
	header.Del("Host")

	req := &http.Request{
		Method:        e.Native(KeyRequestMethod),
		URL:           u,
		Proto:         ServerProtocol,
		ProtoMajor:    2,
		ProtoMinor:    0,
		Header:        header,
		Body:          body,
		ContentLength: int64(contentLength),
		Host:          host,
		RemoteAddr:    remoteAddr(e.Native(KeyRemoteAddr)),
		RequestURI:    requestURI,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	return req.WithContext(WithEnviron(ctx, e)), nil
}

// remoteAddr renders the client address in host:port form
func remoteAddr(ip string) string {
	if ip == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(ip); err == nil {
		return ip
	}
	return net.JoinHostPort(ip, "0")
}
