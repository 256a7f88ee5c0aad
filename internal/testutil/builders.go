package testutil

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/pkg/gateway"
)

// EventBuilder provides a fluent interface for building gateway events
type EventBuilder struct {
	event *gateway.Event
}

// NewEventBuilder creates an event for GET / with no headers
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		event: &gateway.Event{
			Path:    "/",
			Method:  "GET",
			Headers: map[string]string{},
		},
	}
}

// WithPath sets the raw path, query string included
func (b *EventBuilder) WithPath(path string) *EventBuilder {
	b.event.Path = path
	return b
}

// WithMethod sets the method; an empty method is left out of the event
func (b *EventBuilder) WithMethod(method string) *EventBuilder {
	b.event.Method = method
	return b
}

// WithHeader adds a single header
func (b *EventBuilder) WithHeader(name, value string) *EventBuilder {
	b.event.Headers[name] = value
	return b
}

// WithBody sets a literal body
func (b *EventBuilder) WithBody(body string) *EventBuilder {
	b.event.Body = body
	b.event.Encoding = ""
	return b
}

// WithBinaryBody sets a base64 encoded body
func (b *EventBuilder) WithBinaryBody(body []byte) *EventBuilder {
	b.event.Body = base64.StdEncoding.EncodeToString(body)
	b.event.Encoding = gateway.EncodingBase64
	return b
}

// WithRealIP sets the client address
func (b *EventBuilder) WithRealIP(ip string) *EventBuilder {
	b.event.RealIP = ip
	return b
}

// Build returns the event
func (b *EventBuilder) Build() *gateway.Event {
	return b.event
}

// Invocation wraps the event the way the platform delivers it
func (b *EventBuilder) Invocation(t *testing.T) gateway.Invocation {
	t.Helper()
	raw, err := json.Marshal(b.event)
	if err != nil {
		t.Fatalf("failed to encode event: %v", err)
	}
	return gateway.Invocation{Body: string(raw)}
}

// ConfigBuilder provides a fluent interface for building test configurations
type ConfigBuilder struct {
	config *config.Config
}

// NewConfigBuilder creates a new config builder with sensible defaults
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.NewConfig()
	cfg.Logger.Level = "disabled"
	cfg.Logger.Format = "json"
	return &ConfigBuilder{config: cfg}
}

// WithApplication sets the application reference
func (b *ConfigBuilder) WithApplication(ref string) *ConfigBuilder {
	b.config.Application = ref
	return b
}

// WithDiagnostics enables verbose error envelopes
func (b *ConfigBuilder) WithDiagnostics() *ConfigBuilder {
	b.config.DisableHandler = true
	return b
}

// WithEventFormat sets the event format
func (b *ConfigBuilder) WithEventFormat(format string) *ConfigBuilder {
	b.config.EventFormat = format
	return b
}

// WithFunction sets the remote function name
func (b *ConfigBuilder) WithFunction(name string) *ConfigBuilder {
	b.config.Remote.FunctionName = name
	return b
}

// Build returns the configured Config
func (b *ConfigBuilder) Build() *config.Config {
	return b.config
}
