package gateway

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/brendan.keane/apibridge/internal/errors"
)

// Defaults applied when the event does not carry the corresponding header
const (
	DefaultServerName = "lambda"
	DefaultServerPort = "443"
	DefaultScheme     = "https"

	// ServerProtocol is reported for every translated request
	ServerProtocol = "HTTP/2.0"

	// KeyRequestURI keeps the path exactly as the gateway sent it
	KeyRequestURI = "REQUEST_URI"
)

// Translate builds the execution context for one gateway event. The path
// is passed through undecoded; only the query string is percent-decoded.
// Text entries are stored in their Latin-1 form, see Environ.Native.
func Translate(ev *Event) (*Environ, error) {
	requestURI, err := splitTarget(ev.Path)
	if err != nil {
		return nil, err
	}
	pathInfo, rawQuery, _ := strings.Cut(requestURI, "?")

	body, err := decodeBody(ev)
	if err != nil {
		return nil, err
	}

	raw, err := ev.Raw()
	if err != nil {
		return nil, err
	}

	headers := ev.Header()
	env := NewEnviron()

	env.Set(KeyContentLength, Int(len(body)))
	env.Set(KeyContentType, Text(headers.Get("Content-Type")))
	env.Set(KeyPathInfo, Text(pathInfo))
	env.Set(KeyQueryString, Text(unquote(rawQuery)))
	env.Set(KeyRequestURI, Text(requestURI))
	env.Set(KeyRemoteAddr, Text(ev.RealIP))
	env.Set(KeyRequestMethod, Text(ev.RequestMethod()))
	env.Set(KeyScriptName, Text(""))
	env.Set(KeyServerName, Text(headerOr(headers, "Host", DefaultServerName)))
	env.Set(KeyServerPort, Text(headerOr(headers, "X-Forwarded-Port", DefaultServerPort)))
	env.Set(KeyServerProtocol, Text(ServerProtocol))
	env.Set(KeyURLScheme, Text(headerOr(headers, "X-Forwarded-Proto", DefaultScheme)))
	env.Set(KeyInput, Stream(bytes.NewReader(body)))
	env.Set(KeyEvent, Bytes(raw))

	for _, name := range sortedKeys(ev.Headers) {
		key := HeaderKey(name)
		if suppressedHeaderKey(key) {
			continue
		}
		env.Set(key, Text(ev.Headers[name]))
	}

	env.reencode()
	return env, nil
}

// splitTarget returns the path and query of an event path with any
// fragment dropped. An absolute URL is reduced to its path. Escapes are
// not validated: "/100%off" is a legal path.
func splitTarget(target string) (string, error) {
	for i := 0; i < len(target); i++ {
		if c := target[i]; c < 0x20 || c == 0x7f {
			return "", errors.New(errors.ErrorTypeInput, "unparseable request path").
				WithContext("field", "path").
				WithContext("path", target)
		}
	}

	target, _, _ = strings.Cut(target, "#")
	if i := strings.Index(target, "://"); i > 0 && !strings.ContainsAny(target[:i], "/?") {
		rest := target[i+3:]
		if j := strings.IndexAny(rest, "/?"); j >= 0 {
			target = rest[j:]
		} else {
			target = ""
		}
	}
	return target, nil
}

// HeaderKey converts a header name to its environment key
func HeaderKey(name string) string {
	return HeaderPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// HeaderName converts an environment key back to a canonical header name
func HeaderName(key string) string {
	name := strings.TrimPrefix(key, HeaderPrefix)
	return http.CanonicalHeaderKey(strings.ReplaceAll(strings.ToLower(name), "_", "-"))
}

// suppressedHeaderKey reports headers already carried by dedicated keys.
// Only these two are suppressed; other framework headers pass through.
func suppressedHeaderKey(key string) bool {
	return key == HeaderPrefix+KeyContentType || key == HeaderPrefix+KeyContentLength
}

func decodeBody(ev *Event) ([]byte, error) {
	if ev.Encoding != EncodingBase64 {
		return []byte(ev.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(ev.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInput, "body is not valid base64").
			WithContext("field", "body")
	}
	return body, nil
}

func headerOr(h http.Header, name, fallback string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	return fallback
}

// unquote percent-decodes s. Malformed escapes are kept as written and
// '+' is left alone; each invalid UTF-8 byte in the result becomes U+FFFD.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}
	return decodeUTF8(out)
}

// decodeUTF8 converts b to a string, replacing every byte that does not
// start a valid sequence with U+FFFD
func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
