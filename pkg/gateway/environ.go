package gateway

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Environment keys produced by Translate
const (
	KeyContentLength  = "CONTENT_LENGTH"
	KeyContentType    = "CONTENT_TYPE"
	KeyPathInfo       = "PATH_INFO"
	KeyQueryString    = "QUERY_STRING"
	KeyRemoteAddr     = "REMOTE_ADDR"
	KeyRequestMethod  = "REQUEST_METHOD"
	KeyScriptName     = "SCRIPT_NAME"
	KeyServerName     = "SERVER_NAME"
	KeyServerPort     = "SERVER_PORT"
	KeyServerProtocol = "SERVER_PROTOCOL"
	KeyURLScheme      = "url.scheme"
	KeyInput          = "input"
	KeyEvent          = "event"

	// HeaderPrefix starts every key derived from a request header
	HeaderPrefix = "HTTP_"
)

// Kind tags the representation held by a Value
type Kind int

const (
	KindText Kind = iota
	KindBytes
	KindInt
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Value is one environment entry. Exactly one representation is set,
// selected by Kind.
type Value struct {
	kind   Kind
	text   string
	bytes  []byte
	num    int
	stream io.Reader
}

// Text holds a string value
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bytes holds an opaque byte value
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// Int holds an integer value
func Int(n int) Value { return Value{kind: KindInt, num: n} }

// Stream holds a readable body
func Stream(r io.Reader) Value { return Value{kind: KindStream, stream: r} }

// Kind returns the value's tag
func (v Value) Kind() Kind { return v.kind }

// String renders text and integer values; bytes are returned verbatim and
// streams render as empty.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindInt:
		return strconv.Itoa(v.num)
	case KindBytes:
		return string(v.bytes)
	default:
		return ""
	}
}

// Latin1 renders the value with exactly one character per byte, the form
// expected by consumers that treat strings as ISO-8859-1.
func (v Value) Latin1() string {
	s := v.String()
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}

// Int returns the integer held by the value and whether it was one
func (v Value) Int() (int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.num, true
}

// Bytes returns the bytes held by the value and whether it held bytes
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

// Reader returns the stream held by the value and whether it held one
func (v Value) Reader() (io.Reader, bool) {
	if v.kind != KindStream {
		return nil, false
	}
	return v.stream, true
}

// Environ is the execution context handed to the application for one call
type Environ struct {
	values map[string]Value
	latin1 bool
}

// NewEnviron returns an empty environment
func NewEnviron() *Environ {
	return &Environ{values: make(map[string]Value)}
}

// Set stores a value under key
func (e *Environ) Set(key string, v Value) {
	e.values[key] = v
}

// Get returns the value stored under key
func (e *Environ) Get(key string) (Value, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Text returns the string form of key, or "" when unset
func (e *Environ) Text(key string) string {
	v, ok := e.values[key]
	if !ok {
		return ""
	}
	return v.String()
}

// Keys returns all keys in sorted order
func (e *Environ) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (e *Environ) Len() int {
	return len(e.values)
}

// reencode replaces every text entry with its Latin1 form. Integers,
// bytes and streams are left alone.
func (e *Environ) reencode() {
	for k, v := range e.values {
		if v.kind == KindText {
			e.values[k] = Text(v.Latin1())
		}
	}
	e.latin1 = true
}

// Native returns the text entry under key as the bytes the gateway sent,
// undoing the Latin1 re-encoding applied by Translate
func (e *Environ) Native(key string) string {
	s := e.Text(key)
	if !e.latin1 {
		return s
	}
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			b = utf8.AppendRune(b, r)
			continue
		}
		b = append(b, byte(r))
	}
	return string(b)
}

// Event returns the raw gateway event retained for introspection
func (e *Environ) Event() []byte {
	v, ok := e.values[KeyEvent]
	if !ok {
		return nil
	}
	b, _ := v.Bytes()
	return b
}

type environKey struct{}

// WithEnviron attaches an environment to ctx
func WithEnviron(ctx context.Context, env *Environ) context.Context {
	return context.WithValue(ctx, environKey{}, env)
}

// FromContext returns the environment a request was built from
func FromContext(ctx context.Context) (*Environ, bool) {
	env, ok := ctx.Value(environKey{}).(*Environ)
	return env, ok
}
