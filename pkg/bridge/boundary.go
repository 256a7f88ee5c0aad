package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/gateway"
)

type errorBody struct {
	Error   string                 `json:"error"`
	Type    string                 `json:"type,omitempty"`
	Message string                 `json:"message,omitempty"`
	Cause   string                 `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ErrorEnvelope renders err as a gateway response. Without verbose only
// the status text is disclosed.
func ErrorEnvelope(err error, verbose bool) *gateway.Envelope {
	status := errors.StatusCode(err)

	body := errorBody{Error: http.StatusText(status)}
	if verbose {
		info := errors.DebugInfo(err)
		body.Type, _ = info["type"].(string)
		body.Message = errors.UserMessage(err)
		body.Cause, _ = info["cause"].(string)
		if ctx, ok := info["context"].(map[string]interface{}); ok && len(ctx) > 0 {
			body.Context = ctx
		}
	}

	raw, mErr := json.Marshal(body)
	if mErr != nil {
		// Context values are caller supplied and may not encode.
		body.Context = nil
		raw, _ = json.Marshal(body)
	}

	env := gateway.NewEnvelope(status)
	env.AddHeader("Content-Type", "application/json")
	env.Body = string(raw)
	return env
}
