package cli

import (
	"github.com/brendan.keane/apibridge/internal/mcp"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// MCPHandler handles MCP server commands
type MCPHandler struct {
	logger    zerolog.Logger
	registry  *registry.Registry
	newClient ClientFactory
}

// NewMCPHandler creates a new MCP command handler
func NewMCPHandler(logger zerolog.Logger, reg *registry.Registry, newClient ClientFactory) *MCPHandler {
	return &MCPHandler{
		logger:    logger.With().Str("handler", "mcp").Logger(),
		registry:  reg,
		newClient: newClient,
	}
}

// Server builds the MCP server for the command's configuration
func (h *MCPHandler) Server(cmd *cobra.Command) (*mcp.Server, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return nil, err
	}

	opts := []mcp.Option{mcp.WithRegistry(h.registry)}
	if cfg.Remote.FunctionName != "" && h.newClient != nil {
		client, err := h.newClient(cfg)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to create remote client")
			return nil, err
		}
		opts = append(opts, mcp.WithRemote(client))
	}

	h.logger.Debug().
		Str("application", cfg.Application).
		Str("function", cfg.Remote.FunctionName).
		Str("path_prefix", cfg.MCP.PathPrefix).
		Strs("allowed_methods", cfg.MCP.AllowedMethods).
		Msg("starting MCP server")

	server, err := mcp.NewServer(h.logger, cfg, opts...)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create MCP server")
		return nil, err
	}
	return server, nil
}

// Execute handles the MCP server command
func (h *MCPHandler) Execute(cmd *cobra.Command, args []string) error {
	server, err := h.Server(cmd)
	if err != nil {
		return err
	}
	return server.Start()
}
