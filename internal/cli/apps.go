package cli

import (
	"fmt"
	"io"

	"github.com/brendan.keane/apibridge/internal/display"
	"github.com/brendan.keane/apibridge/pkg/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// AppsHandler lists the registered applications
type AppsHandler struct {
	logger   zerolog.Logger
	registry *registry.Registry
	out      io.Writer
}

// NewAppsHandler creates a new apps command handler
func NewAppsHandler(logger zerolog.Logger, reg *registry.Registry, out io.Writer) *AppsHandler {
	return &AppsHandler{
		logger:   logger.With().Str("handler", "apps").Logger(),
		registry: reg,
		out:      out,
	}
}

// Execute handles the apps command
func (h *AppsHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	refs := h.registry.Refs()
	h.logger.Debug().Int("count", len(refs)).Msg("listing applications")

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		for _, ref := range refs {
			fmt.Fprintln(h.out, ref)
		}
		return nil
	}

	_, err = fmt.Fprint(h.out, display.RenderApplications(refs, cfg.Application))
	return err
}
