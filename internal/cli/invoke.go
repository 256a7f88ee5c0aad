package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/bridge"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// InvokeHandler runs one request through the configured application
// in-process, the same way the deployed function would
type InvokeHandler struct {
	logger   zerolog.Logger
	registry *registry.Registry
	in       io.Reader
	out      io.Writer
}

// NewInvokeHandler creates a new invoke command handler
func NewInvokeHandler(logger zerolog.Logger, reg *registry.Registry, in io.Reader, out io.Writer) *InvokeHandler {
	return &InvokeHandler{
		logger:   logger.With().Str("handler", "invoke").Logger(),
		registry: reg,
		in:       in,
		out:      out,
	}
}

// Execute handles the invoke command. With --payload the invocation (or a
// bare gateway event) is read from a file; otherwise it is built from the
// path argument and the request flags.
func (h *InvokeHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		h.logger.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	inv, err := h.invocation(cmd, args)
	if err != nil {
		return err
	}

	app, err := h.registry.Resolve(cfg.Application)
	if err != nil {
		h.logger.Error().Err(err).Str("application", cfg.Application).Msg("failed to resolve application")
		return err
	}

	handler := bridge.New(app, bridge.WithLogger(h.logger), bridge.WithVerboseErrors(cfg.DisableHandler))
	env, _ := handler.Handle(commandContext(cmd), inv)
	return writeEnvelope(h.out, cmd.Flags(), env)
}

func (h *InvokeHandler) invocation(cmd *cobra.Command, args []string) (gateway.Invocation, error) {
	payload, _ := cmd.Flags().GetString("payload")
	if payload == "" {
		path := "/"
		if len(args) > 0 {
			path = args[0]
		}
		ev, err := eventFromFlags(cmd.Flags(), path, h.in)
		if err != nil {
			return gateway.Invocation{}, err
		}
		h.logger.Debug().Str("method", ev.Method).Str("path", ev.Path).Msg("built event from flags")
		return ev.Invocation()
	}

	if len(args) > 0 {
		return gateway.Invocation{}, errors.New(errors.ErrorTypeInput, "a path cannot be combined with --payload").
			WithContext("field", "payload")
	}

	var (
		raw []byte
		err error
	)
	if payload == "-" {
		raw, err = io.ReadAll(h.in)
	} else {
		raw, err = os.ReadFile(payload)
	}
	if err != nil {
		return gateway.Invocation{}, errors.Wrap(err, errors.ErrorTypeInput, "failed to read payload").
			WithContext("field", "payload").
			WithContext("source", payload)
	}
	return ParsePayload(raw)
}

// ParsePayload accepts either a full invocation ({"body": "<event>"}) or
// a bare gateway event and returns the invocation
func ParsePayload(raw []byte) (gateway.Invocation, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return gateway.Invocation{}, errors.Wrap(err, errors.ErrorTypeInput, "payload is not a JSON object").
			WithContext("field", "payload")
	}

	if _, isEvent := probe["path"]; !isEvent {
		var inv gateway.Invocation
		if err := json.Unmarshal(raw, &inv); err != nil {
			return gateway.Invocation{}, errors.Wrap(err, errors.ErrorTypeInput, "malformed invocation").
				WithContext("field", "payload")
		}
		return inv, nil
	}
	return gateway.Invocation{Body: string(raw)}, nil
}
