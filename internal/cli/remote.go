package cli

import (
	"io"

	"github.com/brendan.keane/apibridge/internal/config"
	"github.com/brendan.keane/apibridge/internal/logger"
	apihttp "github.com/brendan.keane/apibridge/pkg/http"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ClientFactory builds the remote client for a configuration
type ClientFactory func(cfg *config.Config) (*apihttp.Client, error)

// DefaultClientFactory loads AWS credentials from the default chain
func DefaultClientFactory(cfg *config.Config) (*apihttp.Client, error) {
	return apihttp.NewClient(
		apihttp.WithEventFormat(cfg.EventFormat),
		apihttp.WithRegion(cfg.Remote.Region),
	)
}

// RemoteHandler sends one request to a deployed function
type RemoteHandler struct {
	logger    zerolog.Logger
	newClient ClientFactory
	in        io.Reader
	out       io.Writer
}

// NewRemoteHandler creates a new remote command handler
func NewRemoteHandler(logger zerolog.Logger, newClient ClientFactory, in io.Reader, out io.Writer) *RemoteHandler {
	return &RemoteHandler{
		logger:    logger.With().Str("handler", "remote").Logger(),
		newClient: newClient,
		in:        in,
		out:       out,
	}
}

// Execute handles the remote command
func (h *RemoteHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	if err := cfg.ValidateRemote(); err != nil {
		return err
	}

	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	ev, err := eventFromFlags(cmd.Flags(), path, h.in)
	if err != nil {
		return err
	}

	client, err := h.newClient(cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create remote client")
		return err
	}

	log := logger.ForRequest(h.logger, ev.Method, ev.Path)
	log.Debug().Str("function", cfg.Remote.FunctionName).Msg("invoking remote function")

	env, err := client.InvokeEvent(commandContext(cmd), cfg.Remote.FunctionName, ev)
	if err != nil {
		log.Error().Err(err).Msg("remote invocation failed")
		return err
	}
	return writeEnvelope(h.out, cmd.Flags(), env)
}
