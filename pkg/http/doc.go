// Package http is an HTTP client that can also call functions served by
// the bridge.
//
// Standard HTTP requests pass through to the wrapped http.Client:
//
//	client, _ := NewClient()
//	resp, _ := client.Get("https://api.example.com/users")
//
// Function invocations use the lambda scheme:
//
//	lambda://<function-name>/<path>?<query-params>
//
// For example:
//
//	lambda://user-service/users/123
//	lambda://data-processor/process?format=json&limit=100
//
// The request is wrapped in a gateway invocation ({"body": "<event JSON>"}),
// or an API Gateway proxy event with WithEventFormat("apigateway"), and the
// function's envelope is turned back into an *http.Response. Binary bodies
// travel base64 encoded in both directions.
package http
