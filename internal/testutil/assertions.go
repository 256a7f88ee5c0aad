package testutil

import (
	"net/http"
	"strings"
	"testing"

	"github.com/brendan.keane/apibridge/pkg/gateway"
)

// Custom assertion helpers to reduce boilerplate in tests

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: got error %v, expected none", msg, err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error, got none", msg)
	}
}

// AssertErrorContains fails the test if err is nil or doesn't contain the expected substring
func AssertErrorContains(t *testing.T, err error, expected string, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got none", msg, expected)
	}
	if !strings.Contains(err.Error(), expected) {
		t.Fatalf("%s: expected error containing %q, got %q", msg, expected, err.Error())
	}
}

// AssertEqual fails the test if got != expected
func AssertEqual(t *testing.T, got, expected interface{}, msg string) {
	t.Helper()
	if got != expected {
		t.Fatalf("%s: got %v, expected %v", msg, got, expected)
	}
}

// AssertStringEqual fails the test if got != expected (string-specific for cleaner output)
func AssertStringEqual(t *testing.T, got, expected string, msg string) {
	t.Helper()
	if got != expected {
		t.Fatalf("%s: got %q, expected %q", msg, got, expected)
	}
}

// AssertStringContains fails the test if str doesn't contain substring
func AssertStringContains(t *testing.T, str, substring string, msg string) {
	t.Helper()
	if !strings.Contains(str, substring) {
		t.Fatalf("%s: expected %q to contain %q", msg, str, substring)
	}
}

// AssertStringNotContains fails the test if str contains substring
func AssertStringNotContains(t *testing.T, str, substring string, msg string) {
	t.Helper()
	if strings.Contains(str, substring) {
		t.Fatalf("%s: expected %q to not contain %q", msg, str, substring)
	}
}

// AssertSliceEqual fails the test if slices don't have the same elements in the same order
func AssertSliceEqual(t *testing.T, got, expected []string, msg string) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("%s: got %d elements, expected %d\ngot: %v\nexpected: %v", msg, len(got), len(expected), got, expected)
	}

	for i, g := range got {
		if g != expected[i] {
			t.Fatalf("%s: element %d: got %q, expected %q\ngot: %v\nexpected: %v", msg, i, g, expected[i], got, expected)
		}
	}
}

// AssertSliceContains fails the test if slice doesn't contain element
func AssertSliceContains(t *testing.T, slice []string, element string, msg string) {
	t.Helper()
	for _, item := range slice {
		if item == element {
			return
		}
	}
	t.Fatalf("%s: expected slice %v to contain %q", msg, slice, element)
}

// AssertHeaderSet fails the test if the request doesn't have the expected header value
func AssertHeaderSet(t *testing.T, req *http.Request, header, expectedValue string, msg string) {
	t.Helper()
	actualValue := req.Header.Get(header)
	if actualValue != expectedValue {
		t.Fatalf("%s: header %q: got %q, expected %q", msg, header, actualValue, expectedValue)
	}
}

// AssertStatus fails the test if the envelope status doesn't match
func AssertStatus(t *testing.T, env *gateway.Envelope, expected int, msg string) {
	t.Helper()
	if env == nil {
		t.Fatalf("%s: envelope is nil", msg)
	}
	if env.StatusCode != expected {
		t.Fatalf("%s: got status %d, expected %d (body %q)", msg, env.StatusCode, expected, env.Body)
	}
}

// AssertEnvelopeHeader fails the test if the envelope header values don't match
func AssertEnvelopeHeader(t *testing.T, env *gateway.Envelope, name string, expected []string, msg string) {
	t.Helper()
	got, ok := env.Headers.Get(name)
	if !ok {
		t.Fatalf("%s: header %q missing from envelope (have %v)", msg, name, env.HeaderNames())
	}
	AssertSliceEqual(t, []string(got), expected, msg)
}

// AssertTextBody fails the test unless the envelope carries body as literal text
func AssertTextBody(t *testing.T, env *gateway.Envelope, body string, msg string) {
	t.Helper()
	if env.Encoding != "" {
		t.Fatalf("%s: expected text body, got encoding %q", msg, env.Encoding)
	}
	AssertStringEqual(t, env.Body, body, msg)
}

// AssertMockCalled fails the test if the mock wasn't called the expected number of times
func AssertMockCalled(t *testing.T, actualCalls, expectedCalls int, mockName string) {
	t.Helper()
	if actualCalls != expectedCalls {
		t.Fatalf("Mock %s: expected %d calls, got %d", mockName, expectedCalls, actualCalls)
	}
}
