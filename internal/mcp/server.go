// Package mcp exposes registered applications and deployed functions to
// MCP clients as tools.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/bridge"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	apihttp "github.com/brendan.keane/apibridge/pkg/http"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Version is reported to MCP clients during initialization
var Version = "dev"

// Tool names
const (
	ToolListApplications  = "list_applications"
	ToolInvokeApplication = "invoke_application"
	ToolInvokeFunction    = "invoke_function"
)

// Server implements the MCP server protocol
type Server struct {
	logger   zerolog.Logger
	config   *config.Config
	registry *registry.Registry
	remote   *apihttp.Client
	mcp      *server.MCPServer
}

// Option configures a Server
type Option func(*Server)

// WithRegistry sets the registry applications are resolved from
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// WithRemote enables the invoke_function tool
func WithRemote(c *apihttp.Client) Option {
	return func(s *Server) {
		s.remote = c
	}
}

// NewServer creates a new MCP server
func NewServer(logger zerolog.Logger, cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "no configuration for MCP server")
	}
	if err := cfg.MCP.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		logger:   logger.With().Str("component", "mcp_server").Logger(),
		config:   cfg,
		registry: registry.Default,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer("apibridge", Version, server.WithToolCapabilities(false))
	s.registerTools()
	return s, nil
}

// Start serves MCP over stdin and stdout until stdin closes
func (s *Server) Start() error {
	s.logger.Debug().Msg("MCP server started, reading from stdin")
	if err := server.ServeStdio(s.mcp); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "MCP stdio server failed")
	}
	s.logger.Debug().Msg("MCP server stopped")
	return nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool(ToolListApplications,
		mcp.WithDescription("List the application references this server can invoke. The configured default application is marked."),
	), s.handleListApplications)

	invokeOpts := append([]mcp.ToolOption{
		mcp.WithDescription(s.describe("Invoke a registered application in-process with a single HTTP request, exactly as the serverless gateway would. Returns the gateway envelope (statusCode, headers, body, encoding).")),
		mcp.WithString("application",
			mcp.Description("Application reference (<module>.<attribute>). Defaults to the configured application."),
		),
	}, requestParams()...)
	s.mcp.AddTool(mcp.NewTool(ToolInvokeApplication, invokeOpts...), s.handleInvokeApplication)

	if s.remote != nil {
		remoteOpts := append([]mcp.ToolOption{
			mcp.WithDescription(s.describe("Invoke a deployed function with a single HTTP request. Returns the gateway envelope.")),
			mcp.WithString("function",
				mcp.Description("Function name or ARN. Defaults to the configured function."),
			),
		}, requestParams()...)
		s.mcp.AddTool(mcp.NewTool(ToolInvokeFunction, remoteOpts...), s.handleInvokeFunction)
	}
}

func (s *Server) describe(base string) string {
	if s.config.MCP.Description == "" {
		return base
	}
	return s.config.MCP.Description + "\n\n" + base
}

func requestParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Request path including any query string, e.g. /users?limit=10"),
		),
		mcp.WithString("method",
			mcp.Description("HTTP method (default GET)"),
		),
		mcp.WithString("body",
			mcp.Description("Request body as text"),
		),
		mcp.WithString("headers",
			mcp.Description("Request headers, one 'Name: value' per line"),
		),
		mcp.WithString("regex",
			mcp.Description("Regex pattern to search the response text (returns matches with surrounding context). Cannot be used with jmespath."),
		),
		mcp.WithString("jmespath",
			mcp.Description("JMESPath expression to filter a JSON response (https://jmespath.org). Cannot be used with regex."),
		),
		mcp.WithNumber("context_lines",
			mcp.Description("Lines of context around regex matches (default 3)"),
		),
	}
}

type applicationInfo struct {
	Reference string `json:"reference"`
	Default   bool   `json:"default,omitempty"`
}

func (s *Server) handleListApplications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs := s.registry.Refs()
	apps := make([]applicationInfo, 0, len(refs))
	for _, ref := range refs {
		apps = append(apps, applicationInfo{Reference: ref, Default: ref == s.config.Application})
	}
	return jsonResult(apps)
}

func (s *Server) handleInvokeApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := request.GetString("application", s.config.Application)
	if ref == "" {
		return mcp.NewToolResultError("no application given and none configured"), nil
	}

	ev, filter, err := s.parseRequest(request)
	if err != nil {
		return toolError(err), nil
	}

	app, err := s.registry.Resolve(ref)
	if err != nil {
		return toolError(err), nil
	}

	inv, err := ev.Invocation()
	if err != nil {
		return toolError(err), nil
	}

	log := s.logger.With().Str("application", ref).Logger()
	log.Debug().Str("method", ev.Method).Str("path", ev.Path).Msg("invoking application")

	h := bridge.New(app, bridge.WithLogger(log), bridge.WithVerboseErrors(s.config.DisableHandler))
	env, _ := h.Handle(ctx, inv)
	return envelopeResult(env, filter)
}

func (s *Server) handleInvokeFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	function := request.GetString("function", s.config.Remote.FunctionName)
	if function == "" {
		return mcp.NewToolResultError("no function given and none configured"), nil
	}

	ev, filter, err := s.parseRequest(request)
	if err != nil {
		return toolError(err), nil
	}

	s.logger.Debug().Str("function", function).Str("method", ev.Method).Str("path", ev.Path).Msg("invoking function")

	env, err := s.remote.InvokeEvent(ctx, function, ev)
	if err != nil {
		return toolError(err), nil
	}
	return envelopeResult(env, filter)
}

// parseRequest builds the gateway event described by the tool arguments
// and checks it against the configured method and path restrictions
func (s *Server) parseRequest(request mcp.CallToolRequest) (*gateway.Event, Filter, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, Filter{}, errors.Wrap(err, errors.ErrorTypeInput, "path is required").WithContext("field", "path")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	method := strings.ToUpper(request.GetString("method", http.MethodGet))

	if err := s.checkAccess(method, path); err != nil {
		return nil, Filter{}, err
	}

	headers, err := parseHeaders(request.GetString("headers", ""))
	if err != nil {
		return nil, Filter{}, err
	}

	filter := Filter{
		Regex:        request.GetString("regex", ""),
		JMESPath:     request.GetString("jmespath", ""),
		ContextLines: request.GetInt("context_lines", 3),
	}
	if err := filter.Validate(); err != nil {
		return nil, Filter{}, err
	}

	return &gateway.Event{
		Method:  method,
		Path:    path,
		Headers: headers,
		Body:    request.GetString("body", ""),
	}, filter, nil
}

// checkAccess enforces AllowedMethods and PathPrefix
func (s *Server) checkAccess(method, path string) error {
	if allowed := s.config.MCP.AllowedMethods; len(allowed) > 0 {
		ok := false
		for _, m := range allowed {
			if strings.EqualFold(m, method) {
				ok = true
				break
			}
		}
		if !ok {
			return errors.New(errors.ErrorTypeInput, "method not allowed").
				WithContext("field", "method").
				WithContext("method", method).
				WithContext("allowed_methods", allowed)
		}
	}

	if prefix := s.config.MCP.PathPrefix; prefix != "" {
		p, _, _ := strings.Cut(path, "?")
		if p != prefix && !strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/") {
			return errors.New(errors.ErrorTypeInput, "path outside the allowed prefix").
				WithContext("field", "path").
				WithContext("path", p).
				WithContext("prefix", prefix)
		}
	}
	return nil
}

func parseHeaders(raw string) (map[string]string, error) {
	headers := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.New(errors.ErrorTypeInput, "header must look like 'Name: value'").
				WithContext("field", "headers").
				WithContext("line", line)
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return headers, nil
}

type filteredEnvelope struct {
	StatusCode int                    `json:"statusCode"`
	Headers    interface{}            `json:"headers"`
	Content    string                 `json:"content"`
	Meta       map[string]interface{} `json:"_meta"`
}

func envelopeResult(env *gateway.Envelope, filter Filter) (*mcp.CallToolResult, error) {
	if filter.Empty() {
		return jsonResult(env)
	}
	if env.Encoding == gateway.EncodingBase64 {
		return mcp.NewToolResultError("cannot filter a base64 encoded response body"), nil
	}

	result, err := filter.Apply(env.Body)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(filteredEnvelope{
		StatusCode: env.StatusCode,
		Headers:    env.Headers,
		Content:    result.Content,
		Meta:       result.Meta,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode tool result")
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errors.UserMessage(err))
}
