package gateway

import (
	"encoding/base64"
	"io"
	"testing"

	"github.com/brendan.keane/apibridge/internal/errors"
)

func readInput(t *testing.T, env *Environ) []byte {
	t.Helper()
	v, ok := env.Get(KeyInput)
	if !ok {
		t.Fatal("input stream missing from environment")
	}
	r, ok := v.Reader()
	if !ok {
		t.Fatalf("input has kind %s, expected stream", v.Kind())
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading input: %v", err)
	}
	return b
}

func TestTranslate_Body(t *testing.T) {
	binary := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	tests := []struct {
		name     string
		event    *Event
		wantBody []byte
	}{
		{
			name:     "plain text body",
			event:    &Event{Path: "/", Body: "héllo wörld"},
			wantBody: []byte("héllo wörld"),
		},
		{
			name:     "base64 body",
			event:    &Event{Path: "/", Body: base64.StdEncoding.EncodeToString(binary), Encoding: "base64"},
			wantBody: binary,
		},
		{
			name:     "unknown encoding is treated as text",
			event:    &Event{Path: "/", Body: "aGk=", Encoding: "gzip"},
			wantBody: []byte("aGk="),
		},
		{
			name:     "empty body",
			event:    &Event{Path: "/"},
			wantBody: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Translate(tt.event)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}

			got := readInput(t, env)
			if string(got) != string(tt.wantBody) {
				t.Errorf("input: got %q, expected %q", got, tt.wantBody)
			}

			v, _ := env.Get(KeyContentLength)
			n, ok := v.Int()
			if !ok {
				t.Fatalf("CONTENT_LENGTH has kind %s, expected int", v.Kind())
			}
			if n != len(tt.wantBody) {
				t.Errorf("CONTENT_LENGTH: got %d, expected %d", n, len(tt.wantBody))
			}
		})
	}
}

func TestTranslate_Defaults(t *testing.T) {
	env, err := Translate(&Event{Path: "/hello"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	expected := map[string]string{
		KeyRequestMethod:  "GET",
		KeyServerName:     "lambda",
		KeyServerPort:     "443",
		KeyURLScheme:      "https",
		KeyServerProtocol: "HTTP/2.0",
		KeyContentType:    "",
		KeyRemoteAddr:     "",
		KeyScriptName:     "",
		KeyPathInfo:       "/hello",
		KeyQueryString:    "",
		KeyContentLength:  "0",
	}
	for key, want := range expected {
		if got := env.Text(key); got != want {
			t.Errorf("%s: got %q, expected %q", key, got, want)
		}
	}
}

func TestTranslate_Headers(t *testing.T) {
	ev := &Event{
		Path:   "/submit?name=a%20b&tag=x%2By",
		Method: "POST",
		RealIP: "203.0.113.9",
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"content-length":    "999",
			"Host":              "example.com",
			"X-Forwarded-Port":  "8443",
			"x-forwarded-proto": "http",
			"X-Request-Id":      "abc-123",
		},
		Body: `{"ok":true}`,
	}

	env, err := Translate(ev)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	checks := map[string]string{
		KeyRequestMethod:        "POST",
		KeyContentType:          "application/json",
		KeyContentLength:        "11",
		KeyRemoteAddr:           "203.0.113.9",
		KeyServerName:           "example.com",
		KeyServerPort:           "8443",
		KeyURLScheme:            "http",
		KeyPathInfo:             "/submit",
		KeyQueryString:          "name=a b&tag=x+y",
		"HTTP_HOST":             "example.com",
		"HTTP_X_REQUEST_ID":     "abc-123",
		"HTTP_X_FORWARDED_PROTO": "http",
	}
	for key, want := range checks {
		if got := env.Text(key); got != want {
			t.Errorf("%s: got %q, expected %q", key, got, want)
		}
	}

	for _, key := range []string{"HTTP_CONTENT_TYPE", "HTTP_CONTENT_LENGTH"} {
		if _, ok := env.Get(key); ok {
			t.Errorf("%s should be suppressed", key)
		}
	}
}

func TestTranslate_RealIPIsNotAHeader(t *testing.T) {
	env, err := Translate(&Event{Path: "/", Headers: map[string]string{"X-Real-Ip": "10.0.0.1"}})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got := env.Text(KeyRemoteAddr); got != "" {
		t.Errorf("REMOTE_ADDR should come from the event field only, got %q", got)
	}
	if got := env.Text("HTTP_X_REAL_IP"); got != "10.0.0.1" {
		t.Errorf("header should still be forwarded, got %q", got)
	}
}

func TestTranslate_RetainsRawEvent(t *testing.T) {
	raw := `{"path":"/x","method":"PUT","headers":{"host":"h"},"body":"b"}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	env, err := Translate(ev)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got := string(env.Event()); got != raw {
		t.Errorf("event: got %q, expected %q", got, raw)
	}
	v, _ := env.Get(KeyEvent)
	if v.Kind() != KindBytes {
		t.Errorf("event kind: got %s, expected bytes", v.Kind())
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
	}{
		{"control character in path", &Event{Path: "/a\x7fb"}},
		{"newline in path", &Event{Path: "/a\nb"}},
		{"bad base64", &Event{Path: "/", Body: "not base64!!", Encoding: "base64"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.event)
			if err == nil {
				t.Fatal("Translate() should fail")
			}
			if !errors.IsType(err, errors.ErrorTypeInput) {
				t.Errorf("error type: got %s, expected input", errors.GetType(err))
			}
		})
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a=1&b=2", "a=1&b=2"},
		{"q=hello%20world", "q=hello world"},
		{"q=a+b", "q=a+b"},
		{"q=%E2%9C%93", "q=✓"},
		{"q=%zz%4", "q=%zz%4"},
		{"q=%ff", "q=\uFFFD"},
		{"%FF%FE", "\uFFFD\uFFFD"},
		{"a%C3%A9%FFb", "aé\uFFFDb"},
	}

	for _, tt := range tests {
		if got := unquote(tt.in); got != tt.want {
			t.Errorf("unquote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeaderKeyRoundTrip(t *testing.T) {
	if got := HeaderKey("x-forwarded-for"); got != "HTTP_X_FORWARDED_FOR" {
		t.Errorf("HeaderKey: got %q", got)
	}
	if got := HeaderName("HTTP_X_FORWARDED_FOR"); got != "X-Forwarded-For" {
		t.Errorf("HeaderName: got %q", got)
	}
}

func TestTranslate_PathIsNotDecoded(t *testing.T) {
	tests := []struct {
		path      string
		wantPath  string
		wantQuery string
		wantURI   string
	}{
		{"/a%20b/c%2Fd?q=x%20y", "/a%20b/c%2Fd", "q=x y", "/a%20b/c%2Fd?q=x%20y"},
		{"/100%off", "/100%off", "", "/100%off"},
		{"/%zz?x=%zz", "/%zz", "x=%zz", "/%zz?x=%zz"},
		{"/page?x=1#top", "/page", "x=1", "/page?x=1"},
		{"https://example.com/abs?x=1", "/abs", "x=1", "/abs?x=1"},
		{"", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			env, err := Translate(&Event{Path: tt.path})
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if got := env.Text(KeyPathInfo); got != tt.wantPath {
				t.Errorf("PATH_INFO: got %q, expected %q", got, tt.wantPath)
			}
			if got := env.Text(KeyQueryString); got != tt.wantQuery {
				t.Errorf("QUERY_STRING: got %q, expected %q", got, tt.wantQuery)
			}
			if got := env.Text(KeyRequestURI); got != tt.wantURI {
				t.Errorf("REQUEST_URI: got %q, expected %q", got, tt.wantURI)
			}
		})
	}
}

func TestTranslate_Latin1Entries(t *testing.T) {
	env, err := Translate(&Event{
		Path:    "/café?name=Jos%C3%A9",
		Headers: map[string]string{"x-name": "José"},
		Body:    "é",
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	checks := map[string]string{
		KeyPathInfo:    "/cafÃ©",
		KeyQueryString: "name=JosÃ©",
		"HTTP_X_NAME":  "JosÃ©",
	}
	for key, want := range checks {
		got := env.Text(key)
		if got != want {
			t.Errorf("%s: got %q, expected %q", key, got, want)
		}
		for _, r := range got {
			if r > 0xff {
				t.Errorf("%s: rune %U exceeds a single byte", key, r)
			}
		}
	}

	if got := env.Native(KeyPathInfo); got != "/café" {
		t.Errorf("Native PATH_INFO: got %q", got)
	}
	if got := env.Native("HTTP_X_NAME"); got != "José" {
		t.Errorf("Native HTTP_X_NAME: got %q", got)
	}

	v, _ := env.Get(KeyContentLength)
	if n, ok := v.Int(); !ok || n != 2 {
		t.Errorf("CONTENT_LENGTH should stay an int of the byte length, got %v", v)
	}
	if string(readInput(t, env)) != "é" {
		t.Errorf("input stream should not be re-encoded")
	}
}

func TestEnviron_NativeWithoutReencoding(t *testing.T) {
	env := NewEnviron()
	env.Set(KeyPathInfo, Text("/café"))
	if got := env.Native(KeyPathInfo); got != "/café" {
		t.Errorf("Native: got %q, expected entry unchanged", got)
	}
}

func TestParseInvocation(t *testing.T) {
	if _, err := ParseInvocation(Invocation{}); !errors.IsType(err, errors.ErrorTypeInput) {
		t.Errorf("empty invocation: expected input error, got %v", err)
	}
	if _, err := ParseInvocation(Invocation{Body: "{not json"}); !errors.IsType(err, errors.ErrorTypeInput) {
		t.Errorf("bad json: expected input error, got %v", err)
	}

	ev, err := ParseInvocation(Invocation{Body: `{"path":"/p","x-real-ip":"1.2.3.4"}`})
	if err != nil {
		t.Fatalf("ParseInvocation() error = %v", err)
	}
	if ev.RealIP != "1.2.3.4" {
		t.Errorf("RealIP: got %q", ev.RealIP)
	}
	if ev.RequestMethod() != "GET" {
		t.Errorf("RequestMethod: got %q", ev.RequestMethod())
	}
}
