package errors

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// UserMessage returns a user-friendly error message
func UserMessage(err error) string {
	if bErr, ok := As(err); ok {
		return formatUserError(bErr)
	}
	return err.Error()
}

// formatUserError creates user-friendly error messages based on error type
func formatUserError(bErr *BridgeError) string {
	switch bErr.Type {
	case ErrorTypeConfig:
		return formatConfigError(bErr)
	case ErrorTypeInput:
		return formatInputError(bErr)
	case ErrorTypeNetwork:
		return formatNetworkError(bErr)
	default:
		return bErr.Message
	}
}

func formatConfigError(bErr *BridgeError) string {
	msg := bErr.Message
	if key, ok := bErr.Context["key"]; ok {
		msg = fmt.Sprintf("Configuration error (%s): %s", key, msg)
	}
	return msg
}

func formatInputError(bErr *BridgeError) string {
	msg := bErr.Message
	if field, ok := bErr.Context["field"]; ok {
		msg = fmt.Sprintf("Invalid %s: %s", field, msg)
	}
	return msg
}

func formatNetworkError(bErr *BridgeError) string {
	msg := bErr.Message
	if fn, ok := bErr.Context["function"]; ok {
		msg = fmt.Sprintf("Invocation of %s failed: %s", fn, msg)
	}
	return msg
}

// StatusCode maps an error to the HTTP status reported to the gateway.
// Malformed events are the caller's fault; everything else is ours.
func StatusCode(err error) int {
	switch GetType(err) {
	case ErrorTypeInput:
		return http.StatusBadRequest
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PresentError displays an error to the user through centralized zerolog system
func PresentError(err error) {
	if err == nil {
		return
	}

	if bErr, ok := As(err); ok {
		event := log.Error().Str("type", string(bErr.Type))

		for key, value := range bErr.Context {
			event = event.Interface(key, value)
		}
		if bErr.Cause != nil {
			event = event.AnErr("cause", bErr.Cause)
		}

		event.Msg(UserMessage(bErr))
	} else {
		log.Error().Err(err).Msg("")
	}
}

// DebugInfo returns detailed error information for debugging
func DebugInfo(err error) map[string]interface{} {
	info := map[string]interface{}{
		"error":   err.Error(),
		"type":    string(ErrorTypeInternal),
		"context": map[string]interface{}{},
	}

	if bErr, ok := As(err); ok {
		info["type"] = string(bErr.Type)
		info["message"] = bErr.Message
		info["context"] = bErr.Context

		if bErr.Cause != nil {
			info["cause"] = bErr.Cause.Error()
		}
	}

	return info
}
