package config

import (
	"context"
	"os"
	"strings"

	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Environment variables read by LoadFromEnv
const (
	EnvApplication    = "WSGI_APPLICATION"
	EnvDisableHandler = "DISABLE_HANDLER"
	EnvEventFormat    = "BRIDGE_EVENT_FORMAT"
	EnvLogLevel       = "BRIDGE_LOG_LEVEL"
	EnvLogFormat      = "BRIDGE_LOG_FORMAT"
	EnvFunctionName   = "BRIDGE_FUNCTION_NAME"
	EnvRegion         = "AWS_REGION"
	EnvMCPDescription = "BRIDGE_MCP_DESCRIPTION"
	EnvLambdaFunction = "AWS_LAMBDA_FUNCTION_NAME"
)

// Event formats accepted by the serve command
const (
	EventFormatVercel     = "vercel"
	EventFormatAPIGateway = "apigateway"
)

// Config holds all application configuration
type Config struct {
	// Application is the registry reference of the served application
	Application string

	// DisableHandler switches the error boundary to diagnostic output
	DisableHandler bool

	EventFormat string
	EnvFile     string

	Logger LoggerConfig
	Remote RemoteConfig
	MCP    MCPConfig
}

// LoggerConfig mirrors the logger package settings
type LoggerConfig struct {
	Level      string
	Format     string // "pretty" or "json"
	WithCaller bool
}

// RemoteConfig holds settings for invoking a deployed function
type RemoteConfig struct {
	FunctionName string
	Region       string
}

// MCPConfig holds MCP-specific configuration
type MCPConfig struct {
	Description    string   // Server description for LLM context
	AllowedMethods []string // Empty means every method
	PathPrefix     string   // Path constraint for invocations
}

// ValidMethods lists the methods accepted by --allow-methods
var ValidMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// contextKey is a custom type for context keys
type contextKey string

// configKey is the context key for storing config
const configKey contextKey = "config"

// WithConfig adds config to context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		EventFormat: EventFormatVercel,
		Logger: LoggerConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// LoadFromEnv builds a Config from getenv, falling back to the process
// environment when getenv is nil.
func LoadFromEnv(getenv func(string) string) *Config {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := NewConfig()
	cfg.Application = strings.TrimSpace(getenv(EnvApplication))
	cfg.DisableHandler = getenv(EnvDisableHandler) == "true"

	if format := getenv(EnvEventFormat); format != "" {
		cfg.EventFormat = strings.ToLower(format)
	}
	if level := getenv(EnvLogLevel); level != "" {
		cfg.Logger.Level = level
	}
	if format := getenv(EnvLogFormat); format != "" {
		cfg.Logger.Format = format
	} else if getenv(EnvLambdaFunction) != "" {
		// CloudWatch does not render ANSI colours
		cfg.Logger.Format = "json"
	}

	cfg.Remote.FunctionName = getenv(EnvFunctionName)
	cfg.Remote.Region = getenv(EnvRegion)
	cfg.MCP.Description = getenv(EnvMCPDescription)
	return cfg
}

// LoadFromFlags creates a Config from the environment, an optional .env
// file and command line flags. Flags that were set explicitly win.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	envFile, err := stringFlag(flags, "env-file")
	if err != nil {
		return nil, err
	}

	getenv := os.Getenv
	if envFile != "" {
		getenv, err = DotenvLookup(envFile, os.Getenv)
		if err != nil {
			return nil, err
		}
	}

	cfg := LoadFromEnv(getenv)
	cfg.EnvFile = envFile

	stringFlags := []struct {
		name   string
		target *string
	}{
		{"app", &cfg.Application},
		{"event-format", &cfg.EventFormat},
		{"log-level", &cfg.Logger.Level},
		{"log-format", &cfg.Logger.Format},
		{"function", &cfg.Remote.FunctionName},
		{"region", &cfg.Remote.Region},
		{"mcp-desc", &cfg.MCP.Description},
		{"path-prefix", &cfg.MCP.PathPrefix},
	}
	for _, s := range stringFlags {
		if !flags.Changed(s.name) {
			continue
		}
		if *s.target, err = flags.GetString(s.name); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "failed to get %s flag", s.name)
		}
	}

	if flags.Changed("diagnostic") {
		if cfg.DisableHandler, err = flags.GetBool("diagnostic"); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get diagnostic flag")
		}
	}
	if flags.Changed("allow-methods") {
		if cfg.MCP.AllowedMethods, err = flags.GetStringSlice("allow-methods"); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get allow-methods flag")
		}
		// Normalize methods to uppercase
		for i, method := range cfg.MCP.AllowedMethods {
			cfg.MCP.AllowedMethods[i] = strings.ToUpper(strings.TrimSpace(method))
		}
	}
	if flags.Changed("log-caller") {
		if cfg.Logger.WithCaller, err = flags.GetBool("log-caller"); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get log-caller flag")
		}
	}

	return cfg, nil
}

func stringFlag(flags *pflag.FlagSet, name string) (string, error) {
	if flags.Lookup(name) == nil {
		return "", nil
	}
	v, err := flags.GetString(name)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrorTypeConfig, "failed to get %s flag", name)
	}
	return v, nil
}

// DotenvLookup reads path and returns a getenv that prefers the process
// environment and falls back to the file's values.
func DotenvLookup(path string, getenv func(string) string) (func(string) string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read env file").
			WithContext("key", "env-file").
			WithContext("path", path)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}

// IsLambda reports whether the process runs inside the Lambda runtime
func IsLambda() bool {
	return os.Getenv(EnvLambdaFunction) != ""
}

// Validate ensures the configuration can serve requests
func (c *Config) Validate() error {
	if c.Application == "" {
		return errors.New(errors.ErrorTypeConfig, "no application configured").
			WithContext("key", EnvApplication).
			WithContext("suggestion", "set WSGI_APPLICATION or pass --app")
	}

	switch c.EventFormat {
	case EventFormatVercel, EventFormatAPIGateway:
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown event format").
			WithContext("key", EnvEventFormat).
			WithContext("format", c.EventFormat).
			WithContext("valid_formats", []string{EventFormatVercel, EventFormatAPIGateway})
	}

	switch c.Logger.Format {
	case "pretty", "json":
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown log format").
			WithContext("key", EnvLogFormat).
			WithContext("format", c.Logger.Format)
	}

	return nil
}

// ValidateRemote ensures a remote function is configured
func (c *Config) ValidateRemote() error {
	if c.Remote.FunctionName == "" {
		return errors.New(errors.ErrorTypeConfig, "no function configured").
			WithContext("key", EnvFunctionName).
			WithContext("suggestion", "set BRIDGE_FUNCTION_NAME or pass --function")
	}
	return nil
}

// Validate ensures MCP configuration is valid
func (c *MCPConfig) Validate() error {
	for _, method := range c.AllowedMethods {
		methodValid := false
		for _, valid := range ValidMethods {
			if strings.ToUpper(method) == valid {
				methodValid = true
				break
			}
		}
		if !methodValid {
			return errors.New(errors.ErrorTypeConfig, "invalid HTTP method in allow-methods").
				WithContext("key", "allow-methods").
				WithContext("method", method).
				WithContext("valid_methods", ValidMethods)
		}
	}

	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		return errors.New(errors.ErrorTypeConfig, "path prefix must start with /").
			WithContext("key", "path-prefix").
			WithContext("prefix", c.PathPrefix)
	}
	return nil
}
