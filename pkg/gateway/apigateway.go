package gateway

import (
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// FromAPIGatewayProxy converts an API Gateway REST proxy request into a
// gateway event. Multi-value query parameters win over the single-value
// map; multi-value headers are joined with ", ".
func FromAPIGatewayProxy(req events.APIGatewayProxyRequest) *Event {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = v
	}
	for k, vs := range req.MultiValueHeaders {
		if len(vs) > 0 {
			headers[k] = strings.Join(vs, ", ")
		}
	}

	query := url.Values{}
	for k, v := range req.QueryStringParameters {
		query.Set(k, v)
	}
	for k, vs := range req.MultiValueQueryStringParameters {
		query[k] = append([]string(nil), vs...)
	}

	path := req.Path
	if path == "" {
		path = "/"
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	ev := &Event{
		Headers: headers,
		Path:    path,
		Body:    req.Body,
		Method:  req.HTTPMethod,
		RealIP:  req.RequestContext.Identity.SourceIP,
	}
	if req.IsBase64Encoded {
		ev.Encoding = EncodingBase64
	}
	return ev
}

// APIGatewayProxyResponse renders the envelope in the API Gateway proxy
// response shape. Every header lands in MultiValueHeaders; single-valued
// ones are mirrored into Headers.
func (e *Envelope) APIGatewayProxyResponse() events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode:        e.StatusCode,
		Headers:           map[string]string{},
		MultiValueHeaders: map[string][]string{},
		Body:              e.Body,
		IsBase64Encoded:   e.Encoding == EncodingBase64,
	}
	if e.Headers == nil {
		return resp
	}
	for pair := e.Headers.Oldest(); pair != nil; pair = pair.Next() {
		resp.MultiValueHeaders[pair.Key] = append([]string(nil), pair.Value...)
		if len(pair.Value) == 1 {
			resp.Headers[pair.Key] = pair.Value[0]
		}
	}
	return resp
}

// HeaderNames returns the envelope's header names in envelope order
func (e *Envelope) HeaderNames() []string {
	if e.Headers == nil {
		return nil
	}
	names := make([]string, 0, e.Headers.Len())
	for pair := e.Headers.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
