// Package testutil provides shared testing utilities and fixtures
package testutil

// Gateway payload fixtures shared across packages
const (
	// HelloInvocation is a complete invocation for GET /hello?x=1
	HelloInvocation = `{"body":"{\"path\":\"/hello?x=1\",\"method\":\"GET\",\"headers\":{\"host\":\"h\"},\"body\":\"\"}"}`

	// HelloEvent is the gateway event carried by HelloInvocation
	HelloEvent = `{"path":"/hello?x=1","method":"GET","headers":{"host":"h"},"body":""}`

	// PostEvent carries a form body and a client address
	PostEvent = `{
		"path": "/echo?name=a%20b",
		"method": "POST",
		"headers": {
			"host": "api.example.com",
			"content-type": "application/x-www-form-urlencoded",
			"x-forwarded-proto": "https",
			"x-forwarded-port": "443"
		},
		"body": "a=1&b=2",
		"x-real-ip": "203.0.113.9"
	}`

	// BinaryEvent carries "\x89PNG" base64 encoded
	BinaryEvent = `{"path":"/upload","method":"PUT","headers":{"content-type":"image/png"},"body":"iVBORw==","encoding":"base64"}`

	// HelloEnvelope is the envelope an application answering "hi" produces
	HelloEnvelope = `{"statusCode":200,"headers":{"Content-Type":"text/plain; charset=utf-8"},"body":"hi"}`
)

// PNGHeader is the 8-byte PNG signature, handy as a non-UTF-8 body
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
