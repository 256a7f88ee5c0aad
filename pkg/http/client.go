package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/gateway"
)

// Scheme routes a request to a function instead of the network
const Scheme = "lambda"

// Event formats a remote function can expect
const (
	FormatVercel     = "vercel"
	FormatAPIGateway = "apigateway"
)

// LambdaInvoker is the subset of the Lambda API the client needs
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client wraps the standard http.Client and adds Lambda invocation support
type Client struct {
	*http.Client
	invoker LambdaInvoker
	format  string
	region  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the client used for non-lambda URLs
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.Client = c
	}
}

// WithInvoker sets the Lambda API client; no AWS config is loaded then
func WithInvoker(inv LambdaInvoker) Option {
	return func(cl *Client) {
		cl.invoker = inv
	}
}

// WithEventFormat selects the payload shape sent to functions
func WithEventFormat(format string) Option {
	return func(cl *Client) {
		cl.format = format
	}
}

// WithRegion overrides the region from the AWS config chain
func WithRegion(region string) Option {
	return func(cl *Client) {
		cl.region = region
	}
}

// NewClient creates a new HTTP client with Lambda support
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		Client: http.DefaultClient,
		format: FormatVercel,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch c.format {
	case FormatVercel, FormatAPIGateway:
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown event format").
			WithContext("key", "event-format").
			WithContext("format", c.format)
	}

	if c.invoker == nil {
		var loadOpts []func(*config.LoadOptions) error
		if c.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(c.region))
		}
		cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "loading AWS config")
		}
		c.invoker = lambda.NewFromConfig(cfg)
	}

	return c, nil
}

// Do performs the request, routing to Lambda or HTTP based on the URL scheme
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == Scheme {
		return c.doLambda(req)
	}
	return c.Client.Do(req)
}

// Get performs a GET request
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs a POST request
func (c *Client) Post(url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// InvokeEvent sends a gateway event to function and returns its envelope
func (c *Client) InvokeEvent(ctx context.Context, function string, ev *gateway.Event) (*gateway.Envelope, error) {
	var (
		payload []byte
		err     error
	)
	if c.format == FormatAPIGateway {
		payload, err = json.Marshal(apiGatewayRequest(ev))
	} else {
		var inv gateway.Invocation
		if inv, err = ev.Invocation(); err == nil {
			payload, err = json.Marshal(inv)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTranslation, "encoding invocation").
			WithContext("function", function)
	}

	out, err := c.InvokeRaw(ctx, function, payload)
	if err != nil {
		return nil, err
	}

	if c.format == FormatAPIGateway {
		return envelopeFromAPIGateway(out, function)
	}

	var env gateway.Envelope
	if err := json.Unmarshal(out, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTranslation, "parsing function envelope").
			WithContext("function", function)
	}
	return &env, nil
}

// InvokeRaw sends payload to function as a RequestResponse invocation
func (c *Client) InvokeRaw(ctx context.Context, function string, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	output, err := c.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "invoking Lambda function").
			WithContext("function", function)
	}

	if output.FunctionError != nil {
		return nil, errors.Newf(errors.ErrorTypeNetwork, "function error: %s", aws.ToString(output.FunctionError)).
			WithContext("function", function).
			WithContext("payload", string(output.Payload))
	}
	return output.Payload, nil
}

// doLambda handles Lambda invocations
func (c *Client) doLambda(req *http.Request) (*http.Response, error) {
	// Extract Lambda function name from hostname
	functionName := req.URL.Host
	if functionName == "" {
		return nil, errors.New(errors.ErrorTypeInput, "lambda URL missing function name").
			WithContext("field", "url")
	}

	ev, err := RequestToEvent(req)
	if err != nil {
		return nil, err
	}

	env, err := c.InvokeEvent(req.Context(), functionName, ev)
	if err != nil {
		return nil, err
	}

	resp, err := EnvelopeToResponse(env)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// RequestToEvent converts an http.Request into a gateway event. Bodies
// that are not valid UTF-8 are base64 encoded.
func RequestToEvent(req *http.Request) (*gateway.Event, error) {
	ev := &gateway.Event{
		Method:  req.Method,
		Path:    req.URL.EscapedPath(),
		Headers: make(map[string]string, len(req.Header)+1),
	}
	if ev.Path == "" {
		ev.Path = "/"
	}
	if req.URL.RawQuery != "" {
		ev.Path += "?" + req.URL.RawQuery
	}

	for key, values := range req.Header {
		ev.Headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	if req.Host != "" {
		ev.Headers["host"] = req.Host
	}

	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInput, "reading request body").
				WithContext("field", "body")
		}
		// Restore body for potential retries
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if utf8.Valid(bodyBytes) {
			ev.Body = string(bodyBytes)
		} else {
			ev.Body = base64.StdEncoding.EncodeToString(bodyBytes)
			ev.Encoding = gateway.EncodingBase64
		}
	}

	return ev, nil
}

// EnvelopeToResponse converts a function envelope into an http.Response
func EnvelopeToResponse(env *gateway.Envelope) (*http.Response, error) {
	body, err := env.DecodedBody()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTranslation, "decoding envelope body")
	}

	return &http.Response{
		StatusCode:    env.StatusCode,
		Status:        fmt.Sprintf("%d %s", env.StatusCode, http.StatusText(env.StatusCode)),
		Header:        env.Header(),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}

func apiGatewayRequest(ev *gateway.Event) events.APIGatewayProxyRequest {
	path, rawQuery, _ := strings.Cut(ev.Path, "?")

	req := events.APIGatewayProxyRequest{
		HTTPMethod:        ev.RequestMethod(),
		Path:              path,
		Headers:           map[string]string{},
		MultiValueHeaders: map[string][]string{},
		Body:              ev.Body,
		IsBase64Encoded:   ev.Encoding == gateway.EncodingBase64,
	}
	for name, value := range ev.Headers {
		req.Headers[name] = value
		req.MultiValueHeaders[name] = []string{value}
	}
	if values, err := url.ParseQuery(rawQuery); err == nil && len(values) > 0 {
		req.QueryStringParameters = map[string]string{}
		req.MultiValueQueryStringParameters = values
		for k, vs := range values {
			req.QueryStringParameters[k] = vs[len(vs)-1]
		}
	}
	return req
}

func envelopeFromAPIGateway(payload []byte, function string) (*gateway.Envelope, error) {
	var resp events.APIGatewayProxyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTranslation, "parsing function response").
			WithContext("function", function)
	}

	env := gateway.NewEnvelope(resp.StatusCode)
	for _, name := range sortedNames(resp.MultiValueHeaders, resp.Headers) {
		if values, ok := resp.MultiValueHeaders[name]; ok {
			for _, v := range values {
				env.AddHeader(name, v)
			}
			continue
		}
		env.AddHeader(name, resp.Headers[name])
	}
	env.Body = resp.Body
	if resp.IsBase64Encoded {
		env.Encoding = gateway.EncodingBase64
	}
	return env, nil
}

// sortedNames merges the keys of the multi and single header maps
func sortedNames(multi map[string][]string, single map[string]string) []string {
	seen := make(map[string]bool, len(multi)+len(single))
	var names []string
	for name := range multi {
		seen[name] = true
		names = append(names, name)
	}
	for name := range single {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
