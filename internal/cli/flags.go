package cli

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddConfigFlags registers the flags config.LoadFromFlags reads
func AddConfigFlags(flags *pflag.FlagSet) {
	flags.StringP("app", "a", "", "Application reference <module>.<attribute> (env WSGI_APPLICATION)")
	flags.String("event-format", config.EventFormatVercel, "Gateway event format: vercel or apigateway (env BRIDGE_EVENT_FORMAT)")
	flags.Bool("diagnostic", false, "Include error details in error envelopes (env DISABLE_HANDLER=true)")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error, disabled (env BRIDGE_LOG_LEVEL)")
	flags.String("log-format", "pretty", "Log format: pretty or json (env BRIDGE_LOG_FORMAT)")
	flags.Bool("log-caller", false, "Include caller in log lines")
	flags.String("env-file", "", "Read configuration from a .env file")
	flags.String("function", "", "Deployed function name or ARN (env BRIDGE_FUNCTION_NAME)")
	flags.String("region", "", "AWS region for remote invocations (env AWS_REGION)")
}

// AddRequestFlags registers the curl-like flags used to describe a request
func AddRequestFlags(flags *pflag.FlagSet) {
	flags.StringP("request", "X", "GET", "HTTP method")
	flags.StringSliceP("header", "H", []string{}, "Header 'Name: value' (can be used multiple times)")
	flags.StringP("data", "d", "", "Request body; @file reads a file, @- reads stdin")
	flags.BoolP("include", "i", false, "Include response headers in output")
	flags.StringP("output", "o", "pretty", "Output format: pretty or json")
}

// AddMCPFlags registers the MCP server flags
func AddMCPFlags(flags *pflag.FlagSet) {
	flags.StringSlice("allow-methods", []string{}, "Methods MCP clients may use (default all)")
	flags.String("path-prefix", "", "Restrict MCP invocations to paths under this prefix")
	flags.String("mcp-desc", "", "Server description for LLM context (env BRIDGE_MCP_DESCRIPTION)")
}

// loadConfig returns the config stored on the command context, loading it
// from flags when the root command did not
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := config.FromContext(ctx); ok {
			return cfg, nil
		}
	}
	return config.LoadFromFlags(cmd.Flags())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// eventFromFlags builds the gateway event described by path and the
// request flags
func eventFromFlags(flags *pflag.FlagSet, path string, stdin io.Reader) (*gateway.Event, error) {
	method, err := flags.GetString("request")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get request flag")
	}
	headerLines, err := flags.GetStringSlice("header")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get header flag")
	}
	data, err := flags.GetString("data")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get data flag")
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ev := &gateway.Event{
		Method:  strings.ToUpper(method),
		Path:    path,
		Headers: make(map[string]string, len(headerLines)),
	}
	for _, line := range headerLines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.New(errors.ErrorTypeInput, "header must look like 'Name: value'").
				WithContext("field", "header").
				WithContext("header", line)
		}
		ev.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	body, err := readData(data, stdin)
	if err != nil {
		return nil, err
	}
	if utf8.ValidString(body) {
		ev.Body = body
	} else {
		ev.Body = base64.StdEncoding.EncodeToString([]byte(body))
		ev.Encoding = gateway.EncodingBase64
	}
	return ev, nil
}

// readData resolves curl-style @file and @- references
func readData(data string, stdin io.Reader) (string, error) {
	if !strings.HasPrefix(data, "@") {
		return data, nil
	}

	name := strings.TrimPrefix(data, "@")
	var (
		raw []byte
		err error
	)
	if name == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(name)
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInput, "failed to read request body").
			WithContext("field", "data").
			WithContext("source", name)
	}
	return string(raw), nil
}
