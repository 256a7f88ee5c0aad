package cli

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/bridge"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// StartFunc hands a handler to the function runtime; lambda.Start in
// production
type StartFunc func(handler interface{})

// ServeHandler runs the configured application under the Lambda runtime
type ServeHandler struct {
	logger   zerolog.Logger
	registry *registry.Registry
	start    StartFunc
	isLambda func() bool
}

// NewServeHandler creates a new serve command handler
func NewServeHandler(logger zerolog.Logger, reg *registry.Registry) *ServeHandler {
	return &ServeHandler{
		logger:   logger.With().Str("handler", "serve").Logger(),
		registry: reg,
		start:    lambda.Start,
		isLambda: config.IsLambda,
	}
}

// Execute handles the serve command
func (h *ServeHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		h.logger.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	if !h.isLambda() {
		return errors.New(errors.ErrorTypeConfig, "serve must run inside the Lambda runtime").
			WithContext("key", config.EnvLambdaFunction).
			WithContext("suggestion", "use 'apibridge invoke' to run requests locally")
	}

	app, err := h.registry.Resolve(cfg.Application)
	if err != nil {
		h.logger.Error().Err(err).Str("application", cfg.Application).Msg("failed to resolve application")
		return err
	}

	handler := bridge.New(app,
		bridge.WithLogger(h.logger),
		bridge.WithVerboseErrors(cfg.DisableHandler),
	)

	h.logger.Info().
		Str("application", cfg.Application).
		Str("event_format", cfg.EventFormat).
		Bool("diagnostic", cfg.DisableHandler).
		Msg("starting function runtime")

	switch cfg.EventFormat {
	case config.EventFormatAPIGateway:
		h.start(handler.HandleAPIGateway)
	default:
		h.start(handler.Handle)
	}
	return nil
}
