package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/internal/testutil"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/rs/zerolog"
)

func TestHandler_HelloInvocation(t *testing.T) {
	var inv gateway.Invocation
	if err := json.Unmarshal([]byte(testutil.HelloInvocation), &inv); err != nil {
		t.Fatal(err)
	}

	capture := &testutil.CaptureHandler{Reply: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})}

	env, err := New(capture).Invoke(context.Background(), inv)
	testutil.AssertNoError(t, err, "Invoke")
	testutil.AssertStatus(t, env, http.StatusOK, "hello")
	testutil.AssertTextBody(t, env, "hi", "hello")

	req := capture.Request
	testutil.AssertStringEqual(t, req.Method, http.MethodGet, "method")
	testutil.AssertStringEqual(t, req.URL.Path, "/hello", "path")
	testutil.AssertStringEqual(t, req.URL.RawQuery, "x=1", "query")
	testutil.AssertStringEqual(t, req.Host, "h", "host")

	environ, ok := gateway.FromContext(req.Context())
	if !ok {
		t.Fatal("request context should carry the environ")
	}
	testutil.AssertStringEqual(t, environ.Text(gateway.KeyPathInfo), "/hello", "PATH_INFO")
	testutil.AssertStringEqual(t, environ.Text(gateway.KeyQueryString), "x=1", "QUERY_STRING")
}

func TestHandler_PostBody(t *testing.T) {
	ev, err := gateway.DecodeEvent([]byte(testutil.PostEvent))
	testutil.AssertNoError(t, err, "DecodeEvent")

	capture := &testutil.CaptureHandler{}
	env, err := New(capture).InvokeEvent(context.Background(), ev)
	testutil.AssertNoError(t, err, "InvokeEvent")
	testutil.AssertStatus(t, env, http.StatusNoContent, "post")

	testutil.AssertStringEqual(t, string(capture.Body), "a=1&b=2", "body")
	testutil.AssertEqual(t, capture.Request.ContentLength, int64(7), "content length")
	testutil.AssertHeaderSet(t, capture.Request, "Content-Type", "application/x-www-form-urlencoded", "content type")
	testutil.AssertStringEqual(t, capture.Request.URL.Query().Get("name"), "a b", "decoded query")
}

func TestHandler_BinaryResponse(t *testing.T) {
	app := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(testutil.PNGHeader)
	})

	inv := testutil.NewEventBuilder().WithPath("/image").Invocation(t)
	env, err := New(app).Invoke(context.Background(), inv)
	testutil.AssertNoError(t, err, "Invoke")
	testutil.AssertStringEqual(t, env.Encoding, gateway.EncodingBase64, "encoding")

	body, err := env.DecodedBody()
	testutil.AssertNoError(t, err, "DecodedBody")
	if !bytes.Equal(body, testutil.PNGHeader) {
		t.Errorf("decoded body: got %v, expected %v", body, testutil.PNGHeader)
	}
}

func TestHandler_InvokeErrors(t *testing.T) {
	tests := []struct {
		name     string
		app      http.Handler
		inv      gateway.Invocation
		wantType errors.ErrorType
	}{
		{"empty invocation", testutil.TextHandler(200, "ok"), gateway.Invocation{}, errors.ErrorTypeInput},
		{"malformed event", testutil.TextHandler(200, "ok"), gateway.Invocation{Body: "{"}, errors.ErrorTypeInput},
		{"bad base64", testutil.TextHandler(200, "ok"), gateway.Invocation{Body: `{"path":"/","body":"***","encoding":"base64"}`}, errors.ErrorTypeInput},
		{"no application", nil, gateway.Invocation{Body: testutil.HelloEvent}, errors.ErrorTypeConfig},
		{"panic", testutil.PanicHandler("boom"), gateway.Invocation{Body: testutil.HelloEvent}, errors.ErrorTypeApplication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(tt.app).Invoke(context.Background(), tt.inv)
			if env != nil {
				t.Error("Invoke should not return an envelope on failure")
			}
			if !errors.IsType(err, tt.wantType) {
				t.Errorf("expected %s error, got %v", tt.wantType, err)
			}
		})
	}
}

func TestHandler_HandleBoundary(t *testing.T) {
	tests := []struct {
		name       string
		app        http.Handler
		inv        gateway.Invocation
		verbose    bool
		wantStatus int
		wantType   string
	}{
		{"input error", testutil.TextHandler(200, "ok"), gateway.Invocation{}, false, http.StatusBadRequest, ""},
		{"panic production", testutil.PanicHandler("boom"), gateway.Invocation{Body: testutil.HelloEvent}, false, http.StatusInternalServerError, ""},
		{"panic diagnostic", testutil.PanicHandler("boom"), gateway.Invocation{Body: testutil.HelloEvent}, true, http.StatusInternalServerError, "application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			h := New(tt.app, WithLogger(zerolog.New(&logs)), WithVerboseErrors(tt.verbose))

			env, err := h.Handle(context.Background(), tt.inv)
			testutil.AssertNoError(t, err, "Handle never fails")
			testutil.AssertStatus(t, env, tt.wantStatus, tt.name)
			testutil.AssertEnvelopeHeader(t, env, "Content-Type", []string{"application/json"}, "error content type")

			var body errorBody
			if err := json.Unmarshal([]byte(env.Body), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			testutil.AssertStringEqual(t, body.Error, http.StatusText(tt.wantStatus), "error text")
			testutil.AssertStringEqual(t, body.Type, tt.wantType, "error type")

			testutil.AssertStringContains(t, logs.String(), "invocation failed", "error log")
			testutil.AssertStringContains(t, logs.String(), `"invocation_id"`, "invocation id logged")
		})
	}
}

func TestHandler_HandleSuccessLogs(t *testing.T) {
	var logs bytes.Buffer
	h := New(testutil.TextHandler(200, "hi"), WithLogger(zerolog.New(&logs)))

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})
	env, err := h.Handle(ctx, gateway.Invocation{Body: testutil.HelloEvent})
	testutil.AssertNoError(t, err, "Handle")
	testutil.AssertTextBody(t, env, "hi", "body")

	testutil.AssertStringContains(t, logs.String(), `"invocation_id":"req-123"`, "lambda request id")
	testutil.AssertStringContains(t, logs.String(), `"component":"bridge"`, "component")
	testutil.AssertStringContains(t, logs.String(), "invocation complete", "completion log")
}

func TestHandler_HandleAPIGateway(t *testing.T) {
	h := New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(r.URL.Query().Get("q")))
	}))

	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/search",
		QueryStringParameters: map[string]string{"q": "gophers"},
		Headers:               map[string]string{"Host": "api.example.com"},
	})
	testutil.AssertNoError(t, err, "HandleAPIGateway")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "status")
	testutil.AssertStringEqual(t, resp.Body, "gophers", "body")
	testutil.AssertSliceEqual(t, resp.MultiValueHeaders["Set-Cookie"], []string{"a=1", "b=2"}, "cookies")
	testutil.AssertStringEqual(t, resp.Headers["Content-Type"], "text/plain", "single header")
}

func TestHandler_HandleAPIGatewayFailure(t *testing.T) {
	resp, err := New(testutil.PanicHandler("boom")).HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/",
	})
	testutil.AssertNoError(t, err, "HandleAPIGateway never fails")
	testutil.AssertEqual(t, resp.StatusCode, http.StatusInternalServerError, "status")
}

func TestInvocationID(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "abc"})
	testutil.AssertStringEqual(t, invocationID(ctx), "abc", "lambda id")

	first, second := invocationID(context.Background()), invocationID(context.Background())
	if first == "" || first == second {
		t.Errorf("expected fresh ids outside lambda, got %q and %q", first, second)
	}
}
