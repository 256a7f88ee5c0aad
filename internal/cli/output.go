package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/brendan.keane/apibridge/internal/display"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/spf13/pflag"
)

// writeEnvelope prints env as JSON or rendered for a terminal
func writeEnvelope(out io.Writer, flags *pflag.FlagSet, env *gateway.Envelope) error {
	format, _ := flags.GetString("output")
	include, _ := flags.GetBool("include")

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode envelope")
		}
		return nil
	case "pretty", "":
		_, err := fmt.Fprintln(out, display.RenderEnvelope(env, include))
		return err
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown output format").
			WithContext("key", "output").
			WithContext("format", format)
	}
}
